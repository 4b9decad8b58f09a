package index

import (
	"strconv"

	art "github.com/plar/go-adaptive-radix-tree"
)

// NeverExpire 过期时间戳为-1则说明永不过期
const NeverExpire int64 = -1

// IndexNode 索引内具体存储的节点 记录了value所在slot的偏移量 过期时间戳和创建时间戳
type IndexNode struct {
	offset    int64
	expiredAt int64 // 统一为使用毫秒为单位的时间戳
	createdAt int64
}

// assertIndexNodePointer 断言传入的值为*IndexNode 基数树内存储的值类型为any 需要这个方法来转换一次
func assertIndexNodePointer(value art.Value) *IndexNode {
	return value.(*IndexNode)
}

// isExpired 判断该节点在给定的时间戳下是否已经过期
func (node *IndexNode) isExpired(now int64) bool {
	return node.expiredAt != NeverExpire && node.expiredAt <= now
}

func (node *IndexNode) String() string {
	return "{offset: " + strconv.FormatInt(node.offset, 10) +
		", expiredAt: " + strconv.FormatInt(node.expiredAt, 10) + "}"
}
