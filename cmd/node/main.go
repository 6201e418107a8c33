// Package main implements a standalone storage node: an HTTP server that
// exposes one or more independent key-value stores ("shards") over a simple
// REST API.
//
// A node is a single-process demo of storage.LockFreeStore: each shard owns
// one, and the node creates shards on demand as requests arrive for them.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Node                      │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /health       - Health check         │
//	│    /shard/*      - Shard operations     │
//	│    /info         - Node information     │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    Node          - Runtime state        │
//	│    shards map    - Active shards        │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - NODE_ID: Node identifier reported in /info (default: "node-1")
//   - NODE_LISTEN: Listen address (default: ":8081")
//
// Example usage:
//
//	NODE_LISTEN=:8081 ./node
//
//	curl -X PUT localhost:8081/shard/0/store/user:123 -d '{"name":"Alice"}'
//	curl localhost:8081/shard/0/store/user:123
//	curl localhost:8081/shard/0/store
//	curl localhost:8081/info
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dreamware/lockfree/internal/storage"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

// nodeShard pairs one storage.LockFreeStore with an identity and
// operation counters, so /stats and /info have something to report beyond
// the raw key/byte counts storage.LockFreeStore.Stats already gives.
type nodeShard struct {
	ID      int
	Primary bool
	Store   *storage.LockFreeStore

	gets, puts, deletes atomic.Int64
}

func newNodeShard(id int, primary bool) *nodeShard {
	return &nodeShard{ID: id, Primary: primary, Store: storage.NewLockFreeStore()}
}

func (s *nodeShard) Get(key string) ([]byte, error) {
	s.gets.Add(1)
	return s.Store.Get(key)
}

func (s *nodeShard) Put(key string, value []byte) error {
	s.puts.Add(1)
	return s.Store.Put(key, value)
}

func (s *nodeShard) Delete(key string) error {
	s.deletes.Add(1)
	return s.Store.Delete(key)
}

func (s *nodeShard) ListKeys() []string {
	return s.Store.List()
}

// shardStats is the JSON shape returned by /shard/{id}/stats.
type shardStats struct {
	ShardID int `json:"shard_id"`
	Ops     struct {
		Gets    int64 `json:"gets"`
		Puts    int64 `json:"puts"`
		Deletes int64 `json:"deletes"`
	} `json:"operations"`
	Storage struct {
		Keys  int `json:"keys"`
		Bytes int `json:"bytes"`
	} `json:"storage"`
}

func (s *nodeShard) stats() shardStats {
	st := s.Store.Stats()
	resp := shardStats{ShardID: s.ID}
	resp.Ops.Gets = s.gets.Load()
	resp.Ops.Puts = s.puts.Load()
	resp.Ops.Deletes = s.deletes.Load()
	resp.Storage.Keys = st.Keys
	resp.Storage.Bytes = st.Bytes
	return resp
}

// shardInfo is the JSON shape one shard contributes to /info.
type shardInfo struct {
	ID      int  `json:"id"`
	Primary bool `json:"primary"`
	Keys    int  `json:"keys"`
}

func (s *nodeShard) info() shardInfo {
	return shardInfo{ID: s.ID, Primary: s.Primary, Keys: s.Store.Stats().Keys}
}

// Node represents a storage node, managing multiple shards and creating them
// on demand as requests arrive for shard IDs it hasn't seen yet.
//
// Concurrency model:
//   - Multiple readers can access the shard map concurrently
//   - Adding a shard requires the exclusive lock
//   - Individual shards handle their own synchronization
type Node struct {
	// shards maps shard IDs to their runtime instances. Created on demand
	// the first time a request names a shard ID that doesn't exist yet.
	shards map[int]*nodeShard

	// ID identifies this node for /info responses.
	ID string

	mu sync.RWMutex
}

// NewNode creates a node with an empty shard map.
func NewNode(id string) *Node {
	return &Node{
		ID:     id,
		shards: make(map[int]*nodeShard),
	}
}

// AddShard adds or replaces a shard under its own ID.
func (n *Node) AddShard(s *nodeShard) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shards[s.ID] = s
}

// GetShard returns the shard with the given ID, or nil if none exists yet.
func (n *Node) GetShard(id int) *nodeShard {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.shards[id]
}

// main starts the HTTP server and serves requests until a shutdown signal
// arrives, then drains in-flight requests before exiting.
func main() {
	nodeID := getenv("NODE_ID", "node-1")
	listen := getenv("NODE_LISTEN", ":8081")

	node := NewNode(nodeID)
	log.Printf("node[%s] initialized (shards created on demand)", nodeID)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/shard/", func(w http.ResponseWriter, r *http.Request) {
		handleShardRequest(node, w, r)
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		handleNodeInfo(node, w, r)
	})

	s := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("node[%s] listening on %s", nodeID, listen)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("node stopped")
}

// handleShardRequest routes shard-specific storage requests, creating shards
// on demand and delegating operations to the appropriate shard instance.
//
// Endpoint: /shard/{shardID}/store/{key}
//
// Path structure:
//   - /shard/0/store/user:123 → Shard 0, key "user:123"
//   - Keys can contain slashes for hierarchical organization
func handleShardRequest(node *Node, w http.ResponseWriter, r *http.Request) {
	pathWithoutPrefix := strings.TrimPrefix(r.URL.Path, "/shard/")

	firstSlash := strings.Index(pathWithoutPrefix, "/")
	if firstSlash == -1 {
		http.Error(w, "invalid path format", http.StatusBadRequest)
		return
	}

	shardIDStr := pathWithoutPrefix[:firstSlash]
	remainingPath := pathWithoutPrefix[firstSlash+1:]

	shardID, err := strconv.Atoi(shardIDStr)
	if err != nil {
		http.Error(w, "invalid shard ID", http.StatusBadRequest)
		return
	}

	s := node.GetShard(shardID)
	if s == nil {
		log.Printf("creating shard %d on demand", shardID)
		newShard := newNodeShard(shardID, true)
		node.AddShard(newShard)
		s = newShard
	}

	if strings.HasPrefix(remainingPath, "store") {
		storePath := strings.TrimPrefix(remainingPath, "store")
		if storePath == "" || storePath == "/" {
			if r.Method == http.MethodGet {
				handleListKeys(s, w, r)
				return
			}
		} else if strings.HasPrefix(storePath, "/") {
			key := strings.TrimPrefix(storePath, "/")
			switch r.Method {
			case http.MethodGet:
				handleGet(s, key, w, r)
			case http.MethodPut:
				handlePut(s, key, w, r)
			case http.MethodDelete:
				handleDelete(s, key, w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}
	} else if remainingPath == "stats" {
		if r.Method == http.MethodGet {
			handleShardStats(s, w, r)
			return
		}
	}

	http.Error(w, "not found", http.StatusNotFound)
}

// handleGet retrieves a value from the shard's storage backend.
func handleGet(s *nodeShard, key string, w http.ResponseWriter, _ *http.Request) {
	value, err := s.Get(key)
	if err != nil {
		if err == storage.ErrKeyNotFound {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(value); err != nil {
		log.Printf("error writing response: %v", err)
	}
}

// handlePut stores a value in the shard's storage backend.
func handlePut(s *nodeShard, key string, w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := s.Put(key, buf.Bytes()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDelete removes a key-value pair from the shard's storage backend.
func handleDelete(s *nodeShard, key string, w http.ResponseWriter, _ *http.Request) {
	if err := s.Delete(key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListKeys returns all keys stored in the shard.
func handleListKeys(s *nodeShard, w http.ResponseWriter, _ *http.Request) {
	keys := s.ListKeys()

	response := struct {
		Keys  []string `json:"keys"`
		Count int      `json:"count"`
	}{
		Keys:  keys,
		Count: len(keys),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// handleShardStats returns operational statistics for a shard.
func handleShardStats(s *nodeShard, w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.stats())
}

// handleNodeInfo returns information about the node and all its managed
// shards.
func handleNodeInfo(node *Node, w http.ResponseWriter, _ *http.Request) {
	node.mu.RLock()
	defer node.mu.RUnlock()

	shardInfos := make([]shardInfo, 0, len(node.shards))
	for _, s := range node.shards {
		shardInfos = append(shardInfos, s.info())
	}

	response := struct {
		NodeID string      `json:"node_id"`
		Shards []shardInfo `json:"shards"`
		Count  int         `json:"shard_count"`
	}{
		NodeID: node.ID,
		Shards: shardInfos,
		Count:  len(shardInfos),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// getenv retrieves an environment variable with a default fallback.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
