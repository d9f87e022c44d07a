package types

// Image is a kernel image discovered on disk.
type Image struct {
	// Stable identifier for the image (the file name).
	// example: blur3x3.so
	ID string `json:"id" example:"blur3x3.so"`
	// Human-friendly name.
	// example: blur3x3
	Name string `json:"name" example:"blur3x3"`
	// Absolute path to the image on disk.
	// example: /data/kernels/blur3x3.so
	Path string `json:"path" example:"/data/kernels/blur3x3.so"`
	// Size of the image file in bytes.
	// example: 24576
	SizeBytes int64 `json:"size_bytes" example:"24576"`
}
