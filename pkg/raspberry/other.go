//go:build !linux
// +build !linux

package raspberry

// openChip is only available on linux (gpio character device).
func openChip(string) (Driver, error) {
	return nil, ErrUnsupported
}

// openMem is only available on linux (/dev/gpiomem).
func openMem() (Driver, error) {
	return nil, ErrUnsupported
}
