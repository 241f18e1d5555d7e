package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dogs-api-go/logcolors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store persists a Stats to a BoltDB file so counters survive restarts
type Store struct {
	db       *bolt.DB
	dbPath   string
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PersistedStats is the on-disk form
type PersistedStats struct {
	Counters map[string]int64 `json:"counters"`

	TotalResponseTime int64 `json:"total_response_time"`
	ResponseCount     int64 `json:"response_count"`
	MinResponseTime   int64 `json:"min_response_time"`
	MaxResponseTime   int64 `json:"max_response_time"`

	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore opens (or creates) the stats database for s
func NewStore(dbPath string, s *Stats) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{
		db:       db,
		dbPath:   dbPath,
		stats:    s,
		stopChan: make(chan struct{}),
	}, nil
}

// Load applies persisted counters to the store's Stats
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	var persisted PersistedStats
	found := false
	err := st.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(statsBucketName)).Get([]byte(statsKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		log.Infof("%s No persisted stats yet", logcolors.LogStats)
		return nil
	}

	s := st.stats
	for name, v := range persisted.Counters {
		s.counter(name).Store(v)
	}
	s.totalResponseTime.Store(persisted.TotalResponseTime)
	s.responseCount.Store(persisted.ResponseCount)
	if persisted.MinResponseTime > 0 && persisted.MinResponseTime < maxInt64 {
		s.minResponseTime.Store(persisted.MinResponseTime)
	}
	if persisted.MaxResponseTime > 0 {
		s.maxResponseTime.Store(persisted.MaxResponseTime)
	}
	if !persisted.FirstStarted.IsZero() {
		s.StartTime = persisted.FirstStarted
	}

	log.Infof("%s Loaded %d persisted counters (first started: %s)",
		logcolors.LogStats, len(persisted.Counters), persisted.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save writes the current counters to disk
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.stats
	data, err := json.Marshal(PersistedStats{
		Counters:          s.Counters(),
		TotalResponseTime: s.totalResponseTime.Load(),
		ResponseCount:     s.responseCount.Load(),
		MinResponseTime:   s.minResponseTime.Load(),
		MaxResponseTime:   s.maxResponseTime.Load(),
		LastSaved:         time.Now(),
		FirstStarted:      s.StartTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(statsBucketName)).Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave saves every interval until Close
func (st *Store) StartAutoSave(interval time.Duration) {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-st.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close stops auto-save, saves once more and closes the database
func (st *Store) Close() error {
	st.stopOnce.Do(func() { close(st.stopChan) })
	st.wg.Wait()

	if err := st.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}

	return st.db.Close()
}
