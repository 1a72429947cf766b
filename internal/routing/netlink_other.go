//go:build !linux

package routing

// NewDefaultInspector returns the netstat inspector; network namespaces only
// exist on Linux.
func NewDefaultInspector(namespace string) (Inspector, error) {
	return NewNetstatInspector(nil), nil
}
