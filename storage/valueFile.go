package storage

import (
	"MisakaKV/file"
	"MisakaKV/logger"
	"path/filepath"
	"strconv"
)

const (
	// SlotSize 每个slot固定的大小 value编码后补齐到这个长度再落盘
	SlotSize = 16 * 1024

	// MaxStoreSize value store文件的大小上限 也就是最多 MaxStoreSize / SlotSize 个slot
	MaxStoreSize = 1024 * 1024 * 1024

	// FillerByte 补齐slot用的填充字节
	FillerByte byte = '0'
)

// FileIOType 指定文件的读写模式
type FileIOType int8

const (
	MMapIOFile        FileIOType = iota // MMap方式
	TraditionalIOFile                   // 传统IO方式
)

// ValueFile 将value store文件抽象为该结构体 只负责按slot粒度的读写
// key是否存活 slot是否被占用 这些都是meta index的事 这里一概不管
type ValueFile struct {
	file     file.FileWriter // 对文件进行操作的结构体
	filePath string
}

// OpenValueFile 给定读写模式和存储路径 打开或新建一个value store文件
func OpenValueFile(ioType FileIOType, folderPath string, storeName string) (*ValueFile, error) {
	filePath := filepath.Join(folderPath, GetValueFileName(storeName))
	var fileWriter file.FileWriter
	var e error
	switch ioType {
	case MMapIOFile:
		return nil, logger.MMapIsNotSupport
	case TraditionalIOFile:
		fileWriter, e = file.NewFileIO(filePath)
	}
	if e != nil {
		return nil, e
	}
	result := &ValueFile{
		file:     fileWriter,
		filePath: filePath,
	}
	return result, nil
}

// WriteSlot 在给定的偏移量写入一整个slot 偏移量必须对齐slot边界 内容必须恰好为一个slot的长度
func (vf *ValueFile) WriteSlot(offset int64, slotBytes []byte) error {
	if offset%SlotSize != 0 {
		logger.GenerateErrorLog(false, false, logger.OffsetIsNotAligned.Error(), strconv.FormatInt(offset, 10))
		return logger.OffsetIsNotAligned
	}
	if len(slotBytes) != SlotSize {
		logger.GenerateErrorLog(false, false, logger.SlotBytesIsMismatch.Error(), strconv.Itoa(len(slotBytes)))
		return logger.SlotBytesIsMismatch
	}
	return vf.file.Write(slotBytes, offset)
}

// ReadSlot 在给定的偏移量读出一整个slot 调用方负责去掉填充字节并解码
func (vf *ValueFile) ReadSlot(offset int64) ([]byte, error) {
	if offset%SlotSize != 0 {
		logger.GenerateErrorLog(false, false, logger.OffsetIsNotAligned.Error(), strconv.FormatInt(offset, 10))
		return nil, logger.OffsetIsNotAligned
	}
	slotBytes := make([]byte, SlotSize)
	e := vf.file.Read(slotBytes, offset)
	if e != nil {
		return nil, e
	}
	return slotBytes, nil
}

// Sync 强制刷新缓冲区到文件中
func (vf *ValueFile) Sync() error {
	return vf.file.Sync()
}

// Delete 删除该文件
func (vf *ValueFile) Delete() error {
	return vf.file.Delete()
}

// Close 关闭该文件
func (vf *ValueFile) Close() error {
	return vf.file.Close()
}

// Length 获取文件长度
func (vf *ValueFile) Length() (int64, error) {
	return vf.file.Length()
}

// GetFilePath 获取该文件的完整路径
func (vf *ValueFile) GetFilePath() string {
	return vf.filePath
}

// GetValueFileName 给value store文件起名 示例名字：store.test.misaka
func GetValueFileName(storeName string) string {
	return "store." + storeName + ".misaka"
}

// GetMetaFileName 给meta文件起名 按惯例以'.'开头作为value store文件的隐藏伴随文件
func GetMetaFileName(storeName string) string {
	return ".store." + storeName + ".meta.misaka"
}
