package common

// Key codes used by the interactive driver. Values match GLFW key codes.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace  = 32
	KeyP      = 80
	KeyR      = 82
	KeyEscape = 256
	KeyRight  = 262
	KeyLeft   = 263
	KeyDown   = 264
	KeyUp     = 265
)
