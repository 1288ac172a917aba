package common

// Stack is a slice backed LIFO used as scratch space by the flood fills.
type Stack[T any] struct {
	data []T
}

func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{data: make([]T, 0, capacity)}
}

func (s *Stack[T]) Push(values ...T) {
	s.data = append(s.data, values...)
}

func (s *Stack[T]) Pop() T {
	e := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return e
}

func (s *Stack[T]) Len() int {
	return len(s.data)
}

func (s *Stack[T]) Empty() bool {
	return len(s.data) == 0
}

// Clear empties the stack but keeps its storage.
func (s *Stack[T]) Clear() {
	s.data = s.data[:0]
}

func (s *Stack[T]) Index(index int) T {
	return s.data[index]
}

// Resize truncates or grows the stack, filling new slots with value.
func (s *Stack[T]) Resize(size int, value T) {
	if size <= len(s.data) {
		s.data = s.data[:size]
		return
	}
	for len(s.data) < size {
		s.data = append(s.data, value)
	}
}

func (s *Stack[T]) Data() []T {
	return s.data
}
