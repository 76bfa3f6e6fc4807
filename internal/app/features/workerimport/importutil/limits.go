// internal/app/features/workerimport/importutil/limits.go
package importutil

// Upload size and row limits for worker imports.
const (
	MaxUploadSize = 5 << 20 // 5 MB
	MaxRows       = 5000
)
