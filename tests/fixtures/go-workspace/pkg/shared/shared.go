package shared

func Hello() string { return "hello" }
