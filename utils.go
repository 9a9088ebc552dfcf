package vkres

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// Bytes views a slice of fixed-size values, such as vertices or uniform
// structs, as the bytes handed to Buffer.SubData. The result aliases data.
func Bytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(zero)))
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}
