package engine

import (
	"MisakaKV/index"
	"MisakaKV/logger"
	"MisakaKV/storage"
	"MisakaKV/util"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"
)

// MaxKeyLength key最长32个字符
const MaxKeyLength = 32

// Engine 对外提供CRUD的门面 自己不做任何分配决策
// slot归谁 key在不在 都问metaIndex 字节怎么落盘 都交给valueFile
type Engine struct {
	mutex     sync.RWMutex
	metaIndex *index.MetaIndex
	valueFile *storage.ValueFile
}

// OpenEngine 打开或新建一个store 会加载已有的meta文件来恢复索引
// maxStoreSize传0表示用默认上限
func OpenEngine(folderPath string, storeName string, maxStoreSize int64) (*Engine, error) {
	e := os.MkdirAll(folderPath, 0755)
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error(), folderPath)
		return nil, e
	}
	valueFile, e := storage.OpenValueFile(storage.TraditionalIOFile, folderPath, storeName)
	if e != nil {
		return nil, e
	}
	metaIndex, e := index.BuildMetaIndex(folderPath, storeName, maxStoreSize)
	if e != nil {
		_ = valueFile.Close()
		return nil, e
	}
	result := &Engine{
		metaIndex: metaIndex,
		valueFile: valueFile,
	}
	logger.GenerateInfoLog("Store " + storeName + " is Open!")
	return result, nil
}

// Create 写入一个新的键值对 ttl为0表示永不过期
// 持有写锁走完"分配slot+写入value"的全过程 保证别的写入方看到的分配结果是原子的
func (eg *Engine) Create(key string, value map[string]interface{}, ttl time.Duration) error {
	slotBytes, e := validateAndEncode(key, value)
	if e != nil {
		return e
	}
	expiredAt := turnTTLToExpiredAt(ttl)

	eg.mutex.Lock()
	defer eg.mutex.Unlock()

	offset, e := eg.metaIndex.AllocateForCreate(key, expiredAt)
	if e != nil {
		return e
	}
	e = eg.valueFile.WriteSlot(offset, slotBytes)
	if e != nil {
		// 写入失败必须把刚分配的slot撤销掉 否则它会变成一个永远"已占用但没内容"的洞
		eg.metaIndex.RollbackCreate(key)
		return e
	}
	return nil
}

// Read 读取key对应的value 不存在或者已经逻辑过期都报KeyIsNotExisted
// 只在查索引的一小段持有读锁 读文件的时候不持有任何锁
// attention 这里刻意允许一个窄窗口：并发的update正在覆盖同一个slot时 读出的字节可能是新旧交错的
// 这是为了读多写少的场景把读的开销压到最低 有一致性要求的调用方自己在外面串行化
func (eg *Engine) Read(key string) (map[string]interface{}, error) {
	if len(key) == 0 || len(key) > MaxKeyLength {
		logger.GenerateErrorLog(false, false, logger.KeyIsInvalid.Error(), key)
		return nil, logger.KeyIsInvalid
	}

	eg.mutex.RLock()
	offset, e := eg.metaIndex.Lookup(key)
	eg.mutex.RUnlock()
	if e != nil {
		return nil, e
	}

	slotBytes, e := eg.valueFile.ReadSlot(offset)
	if e != nil {
		return nil, e
	}
	var value map[string]interface{}
	e = json.Unmarshal(util.TrimValue(slotBytes, storage.FillerByte), &value)
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error(), key, strconv.FormatInt(offset, 10))
		return nil, e
	}
	return value, nil
}

// Update 覆盖已经存在的key 同时可以设置 修改或者清除TTL ttl为0表示清除
func (eg *Engine) Update(key string, value map[string]interface{}, ttl time.Duration) error {
	slotBytes, e := validateAndEncode(key, value)
	if e != nil {
		return e
	}
	expiredAt := turnTTLToExpiredAt(ttl)

	eg.mutex.Lock()
	defer eg.mutex.Unlock()

	offset, previous, e := eg.metaIndex.ReallocateForUpdate(key, expiredAt)
	if e != nil {
		return e
	}
	e = eg.valueFile.WriteSlot(offset, slotBytes)
	if e != nil {
		// 写入失败就恢复到更新前的样子 旧slot的字节没人动过 还是完好的
		eg.metaIndex.RollbackUpdate(key, previous, offset)
		return e
	}
	return nil
}

// Delete 删除key 只动索引和空闲列表 value store里的字节原地留着等被覆盖
func (eg *Engine) Delete(key string) error {
	if len(key) == 0 || len(key) > MaxKeyLength {
		logger.GenerateErrorLog(false, false, logger.KeyIsInvalid.Error(), key)
		return logger.KeyIsInvalid
	}

	eg.mutex.Lock()
	defer eg.mutex.Unlock()

	_, e := eg.metaIndex.ReleaseForDelete(key)
	return e
}

// Keys 按字典序返回当前所有存活且未过期的key
func (eg *Engine) Keys() []string {
	eg.mutex.RLock()
	defer eg.mutex.RUnlock()
	return eg.metaIndex.Keys()
}

// Close 持久化meta文件并关闭value store文件 引擎关闭后不允许再使用
func (eg *Engine) Close() error {
	eg.mutex.Lock()
	defer eg.mutex.Unlock()

	persistError := eg.metaIndex.Persist()
	syncError := eg.valueFile.Sync()
	closeError := eg.valueFile.Close()
	if persistError != nil {
		return persistError
	}
	if syncError != nil {
		return syncError
	}
	return closeError
}

// validateAndEncode 在任何改动发生之前做完所有校验 校验失败时引擎的状态不会有任何变化
func validateAndEncode(key string, value map[string]interface{}) ([]byte, error) {
	if len(key) == 0 || len(key) > MaxKeyLength {
		logger.GenerateErrorLog(false, false, logger.KeyIsInvalid.Error(), key)
		return nil, logger.KeyIsInvalid
	}
	content, e := json.Marshal(value)
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error(), key)
		return nil, e
	}
	if len(content) > storage.SlotSize {
		logger.GenerateErrorLog(false, false, logger.ValueIsTooLarge.Error(), key, strconv.Itoa(len(content)))
		return nil, logger.ValueIsTooLarge
	}
	return util.PadValue(content, storage.SlotSize, storage.FillerByte), nil
}

// turnTTLToExpiredAt 把ttl换算成过期时间戳 小于等于0都视作永不过期
func turnTTLToExpiredAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return index.NeverExpire
	}
	return time.Now().Add(ttl).UnixMilli()
}
