package util

import "strconv"

// PadValue 将编码后的value左侧补齐填充字节 直到整个slot的大小
// 这样每个slot在文件里都是等长的 偏移量永远是slot大小的整数倍
func PadValue(input []byte, slotSize int, filler byte) []byte {
	if len(input) >= slotSize {
		return input
	}
	result := make([]byte, slotSize)
	paddingLength := slotSize - len(input)
	for i := 0; i < paddingLength; i++ {
		result[i] = filler
	}
	copy(result[paddingLength:], input)
	return result
}

// TrimValue 去掉slot内容左侧的填充字节 还原出编码后的value
// attention value编码为JSON对象 首字节一定是'{' 所以用'0'做填充字节是安全的
func TrimValue(input []byte, filler byte) []byte {
	index := 0
	for index < len(input) && input[index] == filler {
		index++
	}
	return input[index:]
}

// TurnByteArrayToString 将byte数组转换为string 更好的判断问题所在
func TurnByteArrayToString(input []byte) string {
	result := ""
	for _, v := range input {
		result += strconv.Itoa(int(v)) + " "
	}
	return result
}
