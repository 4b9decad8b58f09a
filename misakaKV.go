package main

import (
	"MisakaKV/engine"
	"MisakaKV/logger"
	"os"

	"github.com/google/uuid"
)

// 以下为可选配置项
const (
	DefaultFolderPath   = "./misaka-kv-data"
	DefaultMaxStoreSize = 0 // 0表示用引擎的默认上限
)

type MisakaKV struct {
	engine *engine.Engine

	logger *logger.Logger
}

// Init 初始化整个store 包括logger和引擎 storeName留空则生成一个新的不重名的store
func Init(folderPath string, storeName string, maxStoreSize int64) (*MisakaKV, error) {
	database := &MisakaKV{}
	var e error

	// logger和store都放在同一个文件夹里 先保证它存在
	e = os.MkdirAll(folderPath, 0755)
	if e != nil {
		return nil, e
	}

	// 初始化logger
	database.logger, e = logger.NewLogger(folderPath)
	if e != nil {
		return nil, e
	}
	logger.GenerateInfoLog("Logger is Ready!")

	// 没有指定store名字的话 每次启动都是一个全新的store
	if storeName == "" {
		storeName = uuid.NewString()
		logger.GenerateInfoLog("Store Name is Generated: " + storeName)
	}

	// 打开引擎 引擎自己会加载meta文件恢复索引
	database.engine, e = engine.OpenEngine(folderPath, storeName, maxStoreSize)
	if e != nil {
		database.logger.StopLogger()
		return nil, e
	}
	logger.GenerateInfoLog("Engine is Ready!")

	return database, nil
}

// Destroy 关闭整个store 引擎关闭时会把meta文件持久化 任何退出路径都要走到这里
func (db *MisakaKV) Destroy() error {

	// 关闭引擎 引擎里会持久化meta并且关闭文件的
	e := db.engine.Close()
	if e != nil {
		logger.GenerateErrorLog(false, false, e.Error())
	}

	// 关闭logger
	db.logger.StopLogger()

	return e
}
