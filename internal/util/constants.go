package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeText = "text/plain; charset=utf-8"
)

// 生成记录归档目录
const GenerationArchivePrefix = "quiz-generations"
