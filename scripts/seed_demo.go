// 写入本地联调用的演示账号、班级和订阅，并打印各账号的访问令牌
//
// 用户和班级按邮箱、名称去重，可重复执行。
//
// 用法: go run scripts/seed_demo.go -file configs/seed_demo.yaml

package main

import (
	"educonnect_backend/internal/config"
	"educonnect_backend/internal/model"
	"educonnect_backend/internal/util"
	"educonnect_backend/pkg/database"
	"educonnect_backend/pkg/logger"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type seedFile struct {
	Password string `yaml:"password"`
	Users    []struct {
		Name  string         `yaml:"name"`
		Email string         `yaml:"email"`
		Role  model.UserRole `yaml:"role"`
	} `yaml:"users"`
	Classes []struct {
		Name    string `yaml:"name"`
		Subject string `yaml:"subject"`
		Teacher string `yaml:"teacher"`
	} `yaml:"classes"`
	Subscriptions []struct {
		Student string                   `yaml:"student"`
		Class   string                   `yaml:"class"`
		Status  model.SubscriptionStatus `yaml:"status"`
	} `yaml:"subscriptions"`
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	seedPath := flag.String("file", "configs/seed_demo.yaml", "演示数据文件")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatalf("无法读取演示数据: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("解析演示数据失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("密码加密失败: %v", err)
	}

	users := make(map[string]*model.User, len(seed.Users))
	classes := make(map[string]*model.Class, len(seed.Classes))

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, u := range seed.Users {
			user := &model.User{}
			if err := tx.Where(model.User{Email: u.Email}).
				Attrs(model.User{Name: u.Name, Password: string(hash), Role: u.Role}).
				FirstOrCreate(user).Error; err != nil {
				return err
			}
			users[u.Email] = user
		}

		for _, c := range seed.Classes {
			teacher, ok := users[c.Teacher]
			if !ok {
				return fmt.Errorf("class %q references unknown teacher %s", c.Name, c.Teacher)
			}
			class := &model.Class{}
			if err := tx.Where(model.Class{Name: c.Name, TeacherID: teacher.ID}).
				Attrs(model.Class{Subject: c.Subject}).
				FirstOrCreate(class).Error; err != nil {
				return err
			}
			classes[c.Name] = class
		}

		for _, s := range seed.Subscriptions {
			student, ok := users[s.Student]
			if !ok {
				return fmt.Errorf("subscription references unknown student %s", s.Student)
			}
			class, ok := classes[s.Class]
			if !ok {
				return fmt.Errorf("subscription references unknown class %s", s.Class)
			}
			sub := &model.StudentSubscription{}
			if err := tx.Where(model.StudentSubscription{StudentID: student.ID, ClassID: class.ID}).
				Assign(model.StudentSubscription{Status: s.Status}).
				FirstOrCreate(sub).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("写入演示数据失败: %v", err)
	}

	logger.Log.Info("Demo data seeded",
		zap.Int("users", len(users)),
		zap.Int("classes", len(classes)),
		zap.Int("subscriptions", len(seed.Subscriptions)),
	)

	for _, u := range seed.Users {
		token, err := util.GenerateJWT(users[u.Email], cfg.JWT.Secret, cfg.JWT.ExpireTime)
		if err != nil {
			log.Fatalf("签发令牌失败: %v", err)
		}
		fmt.Printf("%-8s %-28s %s\n", u.Role, u.Email, token)
	}
}
