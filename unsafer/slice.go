package unsafer

import (
	"reflect"
	"unsafe"
)

// SliceToBytes interprets an arbitrary input slice as a byte slice.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceToBytes[T any](input []T) []byte {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&input))
	header.Len = int(unsafe.Sizeof(input[0])) * len(input)
	header.Cap = header.Len
	bytesSlice := *(*[]byte)(unsafe.Pointer(&header))
	return bytesSlice
}

// StructToBytes interprets a struct pointed to by input as a byte slice.
//
// The returned slice aliases the struct memory. It does not make a copy.
func StructToBytes[T any](input *T) []byte {
	header := reflect.SliceHeader{
		Data: uintptr(unsafe.Pointer(input)),
		Len:  int(unsafe.Sizeof(*input)),
		Cap:  int(unsafe.Sizeof(*input)),
	}
	bytesSlice := *(*[]byte)(unsafe.Pointer(&header))
	return bytesSlice
}

// SliceBytesToUint32 interprets a byte slice as a slice of uint32 words. It is
// meant for passing SPIR-V byte code to Vulkan.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceBytesToUint32(input []byte) []uint32 {
	header := *(*reflect.SliceHeader)(unsafe.Pointer(&input))
	header.Len = len(input) / 4
	header.Cap = header.Len
	wordsSlice := *(*[]uint32)(unsafe.Pointer(&header))
	return wordsSlice
}
