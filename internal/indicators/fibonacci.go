package indicators

import "fmt"

// fibonacci is the window progression indexed by the window index.
var fibonacci = []int{1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233}

// DefaultWindowIndex selects a 21 bar normal window.
const DefaultWindowIndex = 6

// Fibonacci returns the i-th element of the window progression.
func Fibonacci(i int) (int, error) {
	if i < 0 || i >= len(fibonacci) {
		return 0, fmt.Errorf("window index %d outside [0, %d)", i, len(fibonacci))
	}
	return fibonacci[i], nil
}

// Windows are the fast, normal and slow lengths derived from one index.
type Windows struct {
	Fast   int
	Normal int
	Slow   int
}

// WindowsFor derives consistent windows from a single index. The index must
// leave room for a neighbour on each side.
func WindowsFor(index int) (Windows, error) {
	if index < 1 || index > len(fibonacci)-2 {
		return Windows{}, fmt.Errorf("window index %d outside [1, %d]", index, len(fibonacci)-2)
	}
	return Windows{
		Fast:   fibonacci[index-1],
		Normal: fibonacci[index],
		Slow:   fibonacci[index+1],
	}, nil
}
