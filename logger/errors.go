package logger

import "errors"

// 准备常驻的错误们
var (
	KeyIsInvalid    = errors.New("Key Length is Not Allowed! ")
	ValueIsTooLarge = errors.New("Value Size Exceeds Slot Capacity and It can't be Stored! ")
	StoreIsFull     = errors.New("Value Store is Full and No Slot can be Allocated! ")

	KeyIsNotExisted = errors.New("Key is Not Existed! ")
	KeyIsExisted    = errors.New("Key is Existed! ")

	ValueIsExpired = errors.New("This Value was Expired! ")

	FileIsNotExist      = errors.New("File is not Exist! ")
	OffsetIsNotAligned  = errors.New("Offset is Not Aligned to Slot Size! ")
	SlotBytesIsMismatch = errors.New("Slot Bytes Length is Not Equal to Slot Size! ")
	MetaFileIsBroken    = errors.New("Meta File can Not be Decoded! ")
)

// 不准备常驻的错误们
var (
	MMapIsNotSupport = errors.New("MMap IO will Support Soon")
)
