package marketplace

// Result is the envelope every access function returns: either a success
// carrying typed data or a failure carrying a human-readable message.
// Faults never escape an access function as a raised error; callers branch
// on Success before reading Data.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}
