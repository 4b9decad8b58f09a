package engine

import (
	"MisakaKV/logger"
	"MisakaKV/storage"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestEngine(t *testing.T, folderPath string, maxStoreSize int64) *Engine {
	testEngine, e := OpenEngine(folderPath, "test", maxStoreSize)
	if e != nil {
		t.Fatal(e)
	}
	return testEngine
}

func TestCreateAndRead(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Create("deepak", map[string]interface{}{"name": "Deepak", "hobby": "documentaries"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	value, e := testEngine.Read("deepak")
	if e != nil {
		t.Error(e)
		return
	}
	if value["name"] != "Deepak" || value["hobby"] != "documentaries" {
		t.Error("read value is not equal to created value: ", value)
		return
	}
}

func TestCreateDuplicateKey(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Create("testKey", map[string]interface{}{"v": "1"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	e = testEngine.Create("testKey", map[string]interface{}{"v": "2"}, 0)
	if errors.Is(e, logger.KeyIsExisted) != true {
		t.Error("duplicate create should fail with KeyIsExisted: ", e)
		return
	}
	// 原值不能被动过
	value, e := testEngine.Read("testKey")
	if e != nil {
		t.Error(e)
		return
	}
	if value["v"] != "1" {
		t.Error("failed create should not change the value: ", value)
		return
	}
}

func TestKeyLengthBoundary(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	longestKey := strings.Repeat("k", 32)
	e := testEngine.Create(longestKey, map[string]interface{}{"v": "1"}, 0)
	if e != nil {
		t.Error("32 character key should be accepted: ", e)
		return
	}
	e = testEngine.Create(strings.Repeat("k", 33), map[string]interface{}{"v": "1"}, 0)
	if errors.Is(e, logger.KeyIsInvalid) != true {
		t.Error("33 character key should be rejected: ", e)
		return
	}
}

func TestValueTooLarge(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Create("testKey", map[string]interface{}{
		"data": strings.Repeat("a", storage.SlotSize),
	}, 0)
	if errors.Is(e, logger.ValueIsTooLarge) != true {
		t.Error("oversized value should be rejected: ", e)
		return
	}
}

func TestTTLExpiry(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Create("user1", map[string]interface{}{"name": "Alice"}, 200*time.Millisecond)
	if e != nil {
		t.Error(e)
		return
	}
	value, e := testEngine.Read("user1")
	if e != nil {
		t.Error(e)
		return
	}
	if value["name"] != "Alice" {
		t.Error("read value is wrong before expiry: ", value)
		return
	}

	time.Sleep(300 * time.Millisecond)

	_, e = testEngine.Read("user1")
	if errors.Is(e, logger.KeyIsNotExisted) != true {
		t.Error("expired key should be invisible: ", e)
		return
	}
	// 之后的create可以回收user1留下的slot
	e = testEngine.Create("user2", map[string]interface{}{"name": "Bob"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	value, e = testEngine.Read("user2")
	if e != nil {
		t.Error(e)
		return
	}
	if value["name"] != "Bob" {
		t.Error("read value is wrong after recycle: ", value)
		return
	}
}

func TestDeleteTwice(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Create("testKey", map[string]interface{}{"v": "1"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	e = testEngine.Delete("testKey")
	if e != nil {
		t.Error(e)
		return
	}
	_, e = testEngine.Read("testKey")
	if errors.Is(e, logger.KeyIsNotExisted) != true {
		t.Error("deleted key should not be readable: ", e)
		return
	}
	e = testEngine.Delete("testKey")
	if errors.Is(e, logger.KeyIsNotExisted) != true {
		t.Error("second delete should fail with KeyIsNotExisted: ", e)
		return
	}
}

func TestCapacityBoundary(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 3*storage.SlotSize)
	defer func() {
		_ = testEngine.Close()
	}()

	for i := 0; i < 3; i++ {
		e := testEngine.Create("key"+strconv.Itoa(i), map[string]interface{}{"v": strconv.Itoa(i)}, 0)
		if e != nil {
			t.Error(e)
			return
		}
	}
	e := testEngine.Create("key3", map[string]interface{}{"v": "3"}, 0)
	if errors.Is(e, logger.StoreIsFull) != true {
		t.Error("create above capacity should fail with StoreIsFull: ", e)
		return
	}
}

func TestUpdate(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	e := testEngine.Update("testKey", map[string]interface{}{"v": "1"}, 0)
	if errors.Is(e, logger.KeyIsNotExisted) != true {
		t.Error("update of missing key should fail with KeyIsNotExisted: ", e)
		return
	}

	e = testEngine.Create("testKey", map[string]interface{}{"v": "1"}, 200*time.Millisecond)
	if e != nil {
		t.Error(e)
		return
	}
	// 更新值的同时清除TTL
	e = testEngine.Update("testKey", map[string]interface{}{"v": "2"}, 0)
	if e != nil {
		t.Error(e)
		return
	}

	time.Sleep(300 * time.Millisecond)

	value, e := testEngine.Read("testKey")
	if e != nil {
		t.Error("key should survive after TTL was cleared: ", e)
		return
	}
	if value["v"] != "2" {
		t.Error("updated value is wrong: ", value)
		return
	}
}

func TestReopenStore(t *testing.T) {
	folderPath := t.TempDir()
	testEngine := openTestEngine(t, folderPath, 0)

	e := testEngine.Create("persisted", map[string]interface{}{"name": "misaka"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	e = testEngine.Create("deleted", map[string]interface{}{"v": "1"}, 0)
	if e != nil {
		t.Error(e)
		return
	}
	e = testEngine.Delete("deleted")
	if e != nil {
		t.Error(e)
		return
	}
	e = testEngine.Close()
	if e != nil {
		t.Error(e)
		return
	}

	reopened := openTestEngine(t, folderPath, 0)
	defer func() {
		_ = reopened.Close()
	}()
	value, e := reopened.Read("persisted")
	if e != nil {
		t.Error(e)
		return
	}
	if value["name"] != "misaka" {
		t.Error("reopened value is wrong: ", value)
		return
	}
	_, e = reopened.Read("deleted")
	if errors.Is(e, logger.KeyIsNotExisted) != true {
		t.Error("deleted key should stay deleted after reopen: ", e)
		return
	}
}

func TestKeys(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	for _, key := range []string{"banana", "apple", "cherry"} {
		e := testEngine.Create(key, map[string]interface{}{"v": key}, 0)
		if e != nil {
			t.Error(e)
			return
		}
	}
	e := testEngine.Delete("banana")
	if e != nil {
		t.Error(e)
		return
	}
	keys := testEngine.Keys()
	if len(keys) != 2 || keys[0] != "apple" || keys[1] != "cherry" {
		t.Error("keys are wrong: ", keys)
		return
	}
}

func TestConcurrentDisjointKeys(t *testing.T) {
	testEngine := openTestEngine(t, t.TempDir(), 0)
	defer func() {
		_ = testEngine.Close()
	}()

	workerCount := 8
	keysPerWorker := 16
	var waitGroup sync.WaitGroup
	errorChannel := make(chan error, workerCount)

	for worker := 0; worker < workerCount; worker++ {
		waitGroup.Add(1)
		go func(worker int) {
			defer waitGroup.Done()
			for i := 0; i < keysPerWorker; i++ {
				key := "w" + strconv.Itoa(worker) + "k" + strconv.Itoa(i)
				e := testEngine.Create(key, map[string]interface{}{"owner": strconv.Itoa(worker)}, 0)
				if e != nil {
					errorChannel <- e
					return
				}
				e = testEngine.Update(key, map[string]interface{}{"owner": strconv.Itoa(worker), "round": strconv.Itoa(i)}, 0)
				if e != nil {
					errorChannel <- e
					return
				}
				if i%2 == 0 {
					e = testEngine.Delete(key)
					if e != nil {
						errorChannel <- e
						return
					}
				}
			}
		}(worker)
	}
	waitGroup.Wait()
	close(errorChannel)
	for e := range errorChannel {
		t.Error(e)
		return
	}

	// 留下的key必须都能读到自己的终值 删掉的key必须读不到
	for worker := 0; worker < workerCount; worker++ {
		for i := 0; i < keysPerWorker; i++ {
			key := "w" + strconv.Itoa(worker) + "k" + strconv.Itoa(i)
			value, e := testEngine.Read(key)
			if i%2 == 0 {
				if errors.Is(e, logger.KeyIsNotExisted) != true {
					t.Error("deleted key is still visible: ", key, e)
					return
				}
				continue
			}
			if e != nil {
				t.Error(e)
				return
			}
			if value["owner"] != strconv.Itoa(worker) || value["round"] != strconv.Itoa(i) {
				t.Error("value of ", key, " is corrupted: ", value)
				return
			}
		}
	}
	if len(testEngine.Keys()) != workerCount*keysPerWorker/2 {
		t.Error("live key count is wrong: ", len(testEngine.Keys()))
		return
	}
}
