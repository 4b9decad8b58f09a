package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// 缓冲区拉大一点 写满了就丢弃 不能让记log阻塞引擎的调用方
var logInputChannel = make(chan LogInfo, 128)

type LogLevel string

const (
	Error LogLevel = "E"
	Panic          = "P"
	Info           = "I"
)

// LogInfo 传递Log信息的结构体
type LogInfo struct {
	level      LogLevel
	timeString string
	message    string
}

func GenerateInfoLog(message string) {
	log := LogInfo{
		level:      Info,
		timeString: time.Now().Format("2006-01-02 15:04:05"),
	}
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		log.message = "Can not Get Caller Function, Message: " + message
	} else {
		log.message = runtime.FuncForPC(pc).Name() + " :" + message
	}
	sendLog(log)
}

func GenerateErrorLog(isPanic bool, needStackTrace bool, message string, keyParams ...string) {
	log := LogInfo{
		timeString: time.Now().Format("2006-01-02 15:04:05"),
	}
	if isPanic {
		log.level = Panic
	} else {
		log.level = Error
	}
	param := strings.Join(keyParams, " ")
	if needStackTrace { // 需要全部堆栈信息
		log.message = "Message: " + message + ", parameters: " + param + "\n"
		log.message += "Stack Trace: \n"

		pcs := make([]uintptr, 100)
		n := runtime.Callers(1, pcs)
		pcs = pcs[:n]
		frames := runtime.CallersFrames(pcs)

		for frame, more := frames.Next(); more; frame, more = frames.Next() {
			log.message += frame.File + ": " + strconv.Itoa(frame.Line) + ", Function: " + frame.Function + "\n"
		}
	} else { // 不需要
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			log.message = "Can not Get Caller Function, Message: " + message + ", parameters: " + param
		} else {
			log.message = runtime.FuncForPC(pc).Name() + " :" + message + ", parameters: " + param
		}
	}
	sendLog(log)
}

// sendLog 非阻塞地投递一条log 如果没有Logger在消费或者缓冲已满 直接丢弃
// attention 不能在这里阻塞 否则引擎持有锁的时候记log会把所有调用方都卡住
func sendLog(log LogInfo) {
	select {
	case logInputChannel <- log:
	default:
	}
}

func (li *LogInfo) toByteArray() []byte {
	return []byte(fmt.Sprintf("%s %s: %s \n", li.level, li.timeString, li.message))
}

// Logger 记录log信息的结构体
type Logger struct {
	loggerFile *os.File

	stopChannel chan struct{}
}

// NewLogger 传入log文件存储的路径 以获取一个新的Logger
func NewLogger(logPath string) (*Logger, error) {
	result := &Logger{
		stopChannel: make(chan struct{}),
	}
	f, e := os.OpenFile(GenerateLogFilePath(logPath), os.O_CREATE|os.O_RDWR, 0644)
	if e != nil {
		return nil, e
	}
	result.loggerFile = f
	result.ListenLoggerChannel()
	return result, e
}

// StopLogger 通知Logger退出 只允许调用一次
// attention 这里不能close logInputChannel 它是包级别的channel 下一个Logger还要用
func (logger *Logger) StopLogger() {
	close(logger.stopChannel)
}

// ListenLoggerChannel 开始监听channel以接收log信息 写入log文件并且打印
func (logger *Logger) ListenLoggerChannel() {
	go func() {
		var (
			log   LogInfo
			bytes []byte
			e     error
		)
		for { // 循环监听
			select {
			case log = <-logInputChannel:
				// 记录log
				bytes = log.toByteArray()
				_, e = logger.loggerFile.Write(bytes)
				if e != nil { // 写入logger失败 只能打印出来提示一下
					fmt.Println("Can Not Write Log Cause of: ", e.Error())
				}
				fmt.Println(string(log.level) + " " + log.timeString + " " + log.message)
			case <-logger.stopChannel:
				// 退出前把还没消费完的log尽量写掉
				for {
					select {
					case log = <-logInputChannel:
						_, _ = logger.loggerFile.Write(log.toByteArray())
					default:
						e = logger.loggerFile.Sync()
						if e != nil {
							fmt.Println("Can Not Sync Log File Cause of: ", e.Error())
						}
						e = logger.loggerFile.Close() // 关闭文件
						if e != nil {
							fmt.Println("Can Not Close Log File Cause of: ", e.Error())
						}
						return
					}
				}
			}
		}
	}()
}

func GenerateLogFilePath(path string) string {
	fileName := "log." + time.Now().Format("2006_01_02_15_04_05") + ".misaka"
	return filepath.Join(path, fileName)
}
