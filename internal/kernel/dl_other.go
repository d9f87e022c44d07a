//go:build !linux && !darwin

package kernel

type unsupportedOpener struct{}

// NativeOpener returns an opener that always fails on this platform.
func NativeOpener() Opener { return unsupportedOpener{} }

func (unsupportedOpener) Open(path string) (Image, error) {
	return nil, ErrUnsupportedPlatform
}
