package index

import (
	"MisakaKV/logger"
	"MisakaKV/storage"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	art "github.com/plar/go-adaptive-radix-tree"
)

// MetaIndex 把key索引 空闲slot列表和过期时间堆作为一个整体来维护
// key到底存不存在 新的key该落到哪个slot 都由它说了算 value store只管按它给的偏移量读写字节
//
// attention MetaIndex本身不加锁 engine持有的读写锁负责保护它 参照FileWriter的约定
type MetaIndex struct {
	index      art.Tree
	freeSlots  *FreeSlotList
	expiryHeap *ExpiryHeap

	metaFilePath string
	maxStoreSize int64
	nextOffset   int64 // 文件增长水位 下一个通过增长文件获得的slot偏移量
}

// 以下为meta文件持久化所用的结构 三个部分作为一个JSON文档整体读写
type persistedRecord struct {
	Offset    int64 `json:"offset"`
	ExpiredAt int64 `json:"expiredAt"`
	CreatedAt int64 `json:"createdAt"`
}

type persistedMeta struct {
	Records    map[string]persistedRecord `json:"records"`
	FreeSlots  []int64                    `json:"freeSlots"`
	ExpiryHeap []ExpiryEntry              `json:"expiryHeap"`
}

// BuildMetaIndex 从meta文件重新构建索引 该方法只会在引擎启动时被调用 如果meta文件不存在 则从空索引开始
func BuildMetaIndex(folderPath string, storeName string, maxStoreSize int64) (*MetaIndex, error) {
	if maxStoreSize <= 0 || maxStoreSize > storage.MaxStoreSize {
		maxStoreSize = storage.MaxStoreSize
	}
	result := &MetaIndex{
		index:        art.New(),
		freeSlots:    NewFreeSlotList(),
		expiryHeap:   NewExpiryHeap(),
		metaFilePath: filepath.Join(folderPath, storage.GetMetaFileName(storeName)),
		maxStoreSize: maxStoreSize,
	}

	content, e := os.ReadFile(result.metaFilePath)
	if e != nil {
		if os.IsNotExist(e) { // 没有meta文件说明是全新的store
			return result, nil
		}
		logger.GenerateErrorLog(false, false, e.Error(), result.metaFilePath)
		return nil, e
	}

	meta := &persistedMeta{}
	e = json.Unmarshal(content, meta)
	if e != nil {
		logger.GenerateErrorLog(false, false, logger.MetaFileIsBroken.Error(), result.metaFilePath, e.Error())
		return nil, logger.MetaFileIsBroken
	}

	for key, record := range meta.Records {
		node := &IndexNode{
			offset:    record.Offset,
			expiredAt: record.ExpiredAt,
			createdAt: record.CreatedAt,
		}
		result.index.Insert(art.Key(key), art.Value(node))
		if node.offset+storage.SlotSize > result.nextOffset {
			result.nextOffset = node.offset + storage.SlotSize
		}
	}
	for _, offset := range meta.FreeSlots {
		result.freeSlots.Push(offset)
		if offset+storage.SlotSize > result.nextOffset {
			result.nextOffset = offset + storage.SlotSize
		}
	}
	// 过期时间堆不直接信任meta文件里的快照 而是从key索引整体重建一次
	// 这样堆和索引之间的不变量不依赖上次持久化时的内部数组顺序
	result.rebuildExpiryHeap()

	return result, nil
}

// Persist 把key索引 空闲slot列表和过期时间堆作为一个整体写入meta文件
func (mi *MetaIndex) Persist() error {
	meta := &persistedMeta{
		Records:    make(map[string]persistedRecord),
		FreeSlots:  mi.freeSlots.Snapshot(),
		ExpiryHeap: mi.expiryHeap.Snapshot(),
	}
	mi.index.ForEach(func(node art.Node) bool {
		indexNode := assertIndexNodePointer(node.Value())
		meta.Records[string(node.Key())] = persistedRecord{
			Offset:    indexNode.offset,
			ExpiredAt: indexNode.expiredAt,
			CreatedAt: indexNode.createdAt,
		}
		return true
	})

	content, e := json.Marshal(meta)
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error(), mi.metaFilePath)
		return e
	}
	e = os.WriteFile(mi.metaFilePath, content, 0644)
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error(), mi.metaFilePath)
		return e
	}
	return nil
}

// AllocateForCreate 为一个新key分配slot 会检查key的唯一性
// 分配顺序：先试着回收堆顶已经过期的slot 再取空闲slot 再增长文件 都不行就报StoreIsFull
func (mi *MetaIndex) AllocateForCreate(key string, expiredAt int64) (int64, error) {
	now := time.Now().UnixMilli()

	value, found := mi.index.Search(art.Key(key))
	if found {
		node := assertIndexNodePointer(value)
		if node.isExpired(now) != true {
			logger.GenerateErrorLog(false, false, logger.KeyIsExisted.Error(), key)
			return 0, logger.KeyIsExisted
		}
		// 同名key已经逻辑过期 当作删除处理后继续分配
		mi.index.Delete(art.Key(key))
		mi.freeSlots.Push(node.offset)
		mi.expiryHeap.RemoveKey(key)
	}

	offset, ok := mi.recycleExpiredSlot(now)
	if ok != true {
		offset, ok = mi.freeSlots.Pop()
	}
	if ok != true {
		if mi.nextOffset+storage.SlotSize <= mi.maxStoreSize {
			offset = mi.nextOffset
			mi.nextOffset += storage.SlotSize
		} else {
			logger.GenerateErrorLog(false, false, logger.StoreIsFull.Error(), key, strconv.FormatInt(mi.maxStoreSize, 10))
			return 0, logger.StoreIsFull
		}
	}

	node := &IndexNode{
		offset:    offset,
		expiredAt: expiredAt,
		createdAt: now,
	}
	mi.index.Insert(art.Key(key), art.Value(node))
	if expiredAt != NeverExpire {
		mi.expiryHeap.Push(ExpiryEntry{
			Key:       key,
			ExpiredAt: expiredAt,
			CreatedAt: now,
		})
	}
	return offset, nil
}

// RollbackCreate 撤销一次AllocateForCreate 只在分配成功但value写入失败时使用
// 把索引节点删掉 堆里的元素摘掉 slot归还到空闲列表 保证不会留下一个"已分配但没写入"的slot
func (mi *MetaIndex) RollbackCreate(key string) {
	value, found := mi.index.Search(art.Key(key))
	if found != true {
		return
	}
	node := assertIndexNodePointer(value)
	mi.index.Delete(art.Key(key))
	if node.expiredAt != NeverExpire {
		mi.expiryHeap.RemoveKey(key)
	}
	mi.freeSlots.Push(node.offset)
}

// Lookup 查询key对应的slot偏移量 已经逻辑过期的key视作不存在
// attention 这里不做任何回收 物理回收只发生在AllocateForCreate的路径上 这就是"尽力而为的TTL"
func (mi *MetaIndex) Lookup(key string) (int64, error) {
	value, found := mi.index.Search(art.Key(key))
	if found != true {
		return 0, logger.KeyIsNotExisted
	}
	node := assertIndexNodePointer(value)
	if node.isExpired(time.Now().UnixMilli()) {
		logger.GenerateInfoLog(logger.ValueIsExpired.Error() + " {" + key + ": " + node.String() + "}")
		return 0, logger.KeyIsNotExisted
	}
	return node.offset, nil
}

// ReleaseForDelete 删掉key的索引节点 slot归还到空闲列表 已经逻辑过期的key同样视作不存在
// 如果该key带TTL 还要把它从堆里摘掉 代价是O(n)的堆重建
func (mi *MetaIndex) ReleaseForDelete(key string) (int64, error) {
	value, found := mi.index.Search(art.Key(key))
	if found != true {
		logger.GenerateErrorLog(false, false, logger.KeyIsNotExisted.Error(), key)
		return 0, logger.KeyIsNotExisted
	}
	node := assertIndexNodePointer(value)
	if node.isExpired(time.Now().UnixMilli()) {
		logger.GenerateInfoLog(logger.ValueIsExpired.Error() + " {" + key + ": " + node.String() + "}")
		return 0, logger.KeyIsNotExisted
	}
	mi.index.Delete(art.Key(key))
	if node.expiredAt != NeverExpire {
		mi.expiryHeap.RemoveKey(key)
	}
	mi.freeSlots.Push(node.offset)
	return node.offset, nil
}

// ReallocateForUpdate 为已经存在的key重新分配slot 并更新它的TTL
// 先把旧slot归还到空闲列表再重新分配 所以这条路径永远不会报StoreIsFull
// attention 更新不做过期slot的回收 回收只由AllocateForCreate触发
func (mi *MetaIndex) ReallocateForUpdate(key string, expiredAt int64) (int64, IndexNode, error) {
	now := time.Now().UnixMilli()

	value, found := mi.index.Search(art.Key(key))
	if found != true {
		logger.GenerateErrorLog(false, false, logger.KeyIsNotExisted.Error(), key)
		return 0, IndexNode{}, logger.KeyIsNotExisted
	}
	node := assertIndexNodePointer(value)
	if node.isExpired(now) {
		logger.GenerateInfoLog(logger.ValueIsExpired.Error() + " {" + key + ": " + node.String() + "}")
		return 0, IndexNode{}, logger.KeyIsNotExisted
	}
	previous := *node

	mi.freeSlots.Push(node.offset)
	offset, _ := mi.freeSlots.Pop() // 刚归还过旧slot 列表一定不为空

	if node.expiredAt != NeverExpire {
		mi.expiryHeap.RemoveKey(key)
	}
	node.offset = offset
	node.expiredAt = expiredAt
	node.createdAt = now
	if expiredAt != NeverExpire {
		mi.expiryHeap.Push(ExpiryEntry{
			Key:       key,
			ExpiredAt: expiredAt,
			CreatedAt: now,
		})
	}
	return offset, previous, nil
}

// RollbackUpdate 撤销一次ReallocateForUpdate 只在重新分配成功但value写入失败时使用
// 把索引节点恢复成更新前的样子 堆和空闲列表也随之复原
func (mi *MetaIndex) RollbackUpdate(key string, previous IndexNode, failedOffset int64) {
	value, found := mi.index.Search(art.Key(key))
	if found != true {
		return
	}
	node := assertIndexNodePointer(value)
	if node.expiredAt != NeverExpire {
		mi.expiryHeap.RemoveKey(key)
	}
	if failedOffset != previous.offset {
		// 旧slot可能还躺在空闲列表里 捞回来 写失败的slot顶替它的位置
		mi.freeSlots.Remove(previous.offset)
		mi.freeSlots.Push(failedOffset)
	}
	node.offset = previous.offset
	node.expiredAt = previous.expiredAt
	node.createdAt = previous.createdAt
	if previous.expiredAt != NeverExpire {
		mi.expiryHeap.Push(ExpiryEntry{
			Key:       key,
			ExpiredAt: previous.expiredAt,
			CreatedAt: previous.createdAt,
		})
	}
}

// Keys 按key的字典序返回当前所有存活且未过期的key
func (mi *MetaIndex) Keys() []string {
	now := time.Now().UnixMilli()
	result := make([]string, 0, mi.index.Size())
	mi.index.ForEach(func(node art.Node) bool {
		indexNode := assertIndexNodePointer(node.Value())
		if indexNode.isExpired(now) != true {
			result = append(result, string(node.Key()))
		}
		return true
	})
	return result
}

// Count 当前索引内的节点数量 包含已经逻辑过期但还没被回收的节点
func (mi *MetaIndex) Count() int {
	return mi.index.Size()
}

// recycleExpiredSlot 尝试回收堆顶已经过期的slot 成功时对应key的索引节点会被删掉
// 堆里可能残留指向已删除key的元素 遇到了就直接丢弃 继续看下一个堆顶
func (mi *MetaIndex) recycleExpiredSlot(now int64) (int64, bool) {
	for {
		entry, ok := mi.expiryHeap.Peek()
		if ok != true || entry.ExpiredAt > now {
			return 0, false
		}
		mi.expiryHeap.Pop()

		value, found := mi.index.Search(art.Key(entry.Key))
		if found != true {
			continue
		}
		node := assertIndexNodePointer(value)
		if node.expiredAt != entry.ExpiredAt || node.createdAt != entry.CreatedAt {
			continue // 堆里的元素已经和索引对不上了 说明key早就被改写过 丢弃
		}
		mi.index.Delete(art.Key(entry.Key))
		return node.offset, true
	}
}

// rebuildExpiryHeap 从key索引整体重建过期时间堆 只保留带TTL的节点
func (mi *MetaIndex) rebuildExpiryHeap() {
	entries := make([]ExpiryEntry, 0)
	mi.index.ForEach(func(node art.Node) bool {
		indexNode := assertIndexNodePointer(node.Value())
		if indexNode.expiredAt != NeverExpire {
			entries = append(entries, ExpiryEntry{
				Key:       string(node.Key()),
				ExpiredAt: indexNode.expiredAt,
				CreatedAt: indexNode.createdAt,
			})
		}
		return true
	})
	mi.expiryHeap.Rebuild(entries)
}
