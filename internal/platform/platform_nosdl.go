//go:build !cgo || nosdl

package platform

func NewSDLDisplay() (Display, error) {
	return nil, ErrNoBackend
}
