package main

import (
	"MisakaKV/logger"
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/tidwall/pretty"
)

func main() {
	folderPath := flag.String("dir", DefaultFolderPath, "Folder path to be used for this store")
	storeName := flag.String("name", "", "Store name, a fresh one is generated if empty")
	maxStoreSize := flag.Int64("size", DefaultMaxStoreSize, "Max value store size in bytes, 0 for the default")
	flag.Parse()

	database, e := Init(*folderPath, *storeName, *maxStoreSize)
	if e != nil {
		fmt.Println(e.Error())
		return
	}
	defer func() {
		_ = database.Destroy()
	}()

	fmt.Println("Type commands. 'help' for information or 'quit' to exit.")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, e := reader.ReadString('\n')
		if e != nil {
			fmt.Println("input error:", e)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		// value部分是带空格的JSON 所以按shell的引号规则切分
		args, e := shellquote.Split(line)
		if e != nil {
			fmt.Println("parse error:", e)
			continue
		}

		switch strings.ToLower(args[0]) {
		default:
			fmt.Println("unknown command '" + args[0] + "'")
		case "help":
			fmt.Println("create <key> <json> [ttl]    e.g. create user1 '{\"name\": \"Alice\"}' 5s")
			fmt.Println("read   <key>")
			fmt.Println("update <key> <json> [ttl]    ttl omitted clears the TTL")
			fmt.Println("delete <key>")
			fmt.Println("keys")
		case "create", "update":
			if len(args) != 3 && len(args) != 4 {
				fmt.Println("wrong number of arguments for '" + args[0] + "'")
				continue
			}
			var value map[string]interface{}
			e = json.Unmarshal([]byte(args[2]), &value)
			if e != nil {
				fmt.Println("value is not a JSON mapping:", e)
				continue
			}
			var ttl time.Duration
			if len(args) == 4 {
				ttl, e = time.ParseDuration(args[3])
				if e != nil {
					fmt.Println("ttl is not a duration:", e)
					continue
				}
			}
			logger.GenerateInfoLog("Query: " + args[0] + " " + args[1])
			if strings.ToLower(args[0]) == "create" {
				e = database.engine.Create(args[1], value, ttl)
			} else {
				e = database.engine.Update(args[1], value, ttl)
			}
			if e != nil {
				fmt.Println(e.Error())
				continue
			}
			fmt.Println("OK")
		case "read":
			if len(args) != 2 {
				fmt.Println("wrong number of arguments for 'read'")
				continue
			}
			logger.GenerateInfoLog("Query: read " + args[1])
			value, e := database.engine.Read(args[1])
			if e != nil {
				fmt.Println(e.Error())
				continue
			}
			content, e := json.Marshal(value)
			if e != nil {
				fmt.Println(e.Error())
				continue
			}
			fmt.Print(string(pretty.Pretty(content)))
		case "delete":
			if len(args) != 2 {
				fmt.Println("wrong number of arguments for 'delete'")
				continue
			}
			logger.GenerateInfoLog("Query: delete " + args[1])
			e = database.engine.Delete(args[1])
			if e != nil {
				fmt.Println(e.Error())
				continue
			}
			fmt.Println("OK")
		case "keys":
			for _, key := range database.engine.Keys() {
				fmt.Println(key)
			}
		}
	}
}
