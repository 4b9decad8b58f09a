package index

// FreeSlotList 记录value store里当前未被占用的slot偏移量
// 先进先出 这样slot的复用顺序是确定的 也方便测试验证
type FreeSlotList struct {
	slots []int64
}

func NewFreeSlotList() *FreeSlotList {
	return &FreeSlotList{
		slots: make([]int64, 0),
	}
}

// Push 归还一个slot偏移量
func (fl *FreeSlotList) Push(offset int64) {
	fl.slots = append(fl.slots, offset)
}

// Pop 取出最早归还的slot偏移量 列表为空时第二个返回值为false
func (fl *FreeSlotList) Pop() (int64, bool) {
	if len(fl.slots) == 0 {
		return 0, false
	}
	offset := fl.slots[0]
	fl.slots = fl.slots[1:]
	return offset, true
}

// Remove 从列表中移除指定的偏移量 只在回滚的错误路径上使用 所以线性扫描是可以接受的
func (fl *FreeSlotList) Remove(offset int64) bool {
	for i, v := range fl.slots {
		if v == offset {
			fl.slots = append(fl.slots[:i], fl.slots[i+1:]...)
			return true
		}
	}
	return false
}

// Length 当前空闲slot的数量
func (fl *FreeSlotList) Length() int {
	return len(fl.slots)
}

// Snapshot 复制出当前空闲slot的列表 持久化的时候用
func (fl *FreeSlotList) Snapshot() []int64 {
	result := make([]int64, len(fl.slots))
	copy(result, fl.slots)
	return result
}
