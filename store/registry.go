package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/antikgo/antik/lib"
	bolt "go.etcd.io/bbolt"
)

const (
	metadataBucket      = "metadata"
	attachmentsBucket   = "attachments"
	versionKey          = "version"
	registryFileVersion = 1
)

// AttachmentRecord describes one attachment already downloaded, so a later
// run can skip re-fetching the part.
type AttachmentRecord struct {
	UID          uint64
	PartNo       string
	FileName     string
	Size         int64
	DownloadedAt time.Time
}

// Registry is a bbolt database of downloaded attachments, bucketed by
// account tag then mailbox name.
type Registry struct {
	dbFile string
	db     *bolt.DB
	log    lib.Logger
}

func NewRegistry(filename string) (*Registry, error) {
	return NewRegistryWithLogger(filename, nil)
}

func NewRegistryWithLogger(filename string, logger lib.Logger) (*Registry, error) {
	if logger == nil {
		logger = &lib.NoLog{}
	}
	options := bolt.DefaultOptions
	options.Timeout = 10 * time.Second

	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", filename, err)
	}

	db, err := bolt.Open(filename, 0600, options)
	if err != nil {
		return nil, err
	}

	registry := &Registry{
		dbFile: filename,
		db:     db,
		log:    logger,
	}
	if err = registry.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return registry, nil
}

func (r *Registry) init() error {
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		version, err := SerializeInt(registryFileVersion)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(versionKey), version)
	})
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Record saves the attachment under account/mailbox, keyed by UID and part
// number.
func (r *Registry) Record(account, mailbox string, record AttachmentRecord) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket, err := mailboxBucket(tx, account, mailbox, true)
		if err != nil {
			return err
		}
		data, err := SerializeObject(&record)
		if err != nil {
			return err
		}
		r.log.Printf("Recording attachment uid=%d part=%s file=%q", record.UID, record.PartNo, record.FileName)
		return bucket.Put(recordKey(record.UID, record.PartNo), data)
	})
}

// Lookup returns the record for the part, or nil when it was never
// downloaded.
func (r *Registry) Lookup(account, mailbox string, uid uint64, partNo string) (*AttachmentRecord, error) {
	var record *AttachmentRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		bucket, err := mailboxBucket(tx, account, mailbox, false)
		if err != nil || bucket == nil {
			return err
		}
		data := bucket.Get(recordKey(uid, partNo))
		if data == nil {
			return nil
		}
		record, err = DeserializeObject[AttachmentRecord](data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every record of the mailbox, in key order.
func (r *Registry) List(account, mailbox string) ([]AttachmentRecord, error) {
	records := make([]AttachmentRecord, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		bucket, err := mailboxBucket(tx, account, mailbox, false)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.ForEach(func(key, data []byte) error {
			record, err := DeserializeObject[AttachmentRecord](data)
			if err != nil {
				return err
			}
			records = append(records, *record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func mailboxBucket(tx *bolt.Tx, account, mailbox string, create bool) (*bolt.Bucket, error) {
	if create {
		root, err := tx.CreateBucketIfNotExists([]byte(attachmentsBucket))
		if err != nil {
			return nil, err
		}
		accountBucket, err := root.CreateBucketIfNotExists([]byte(account))
		if err != nil {
			return nil, err
		}
		return accountBucket.CreateBucketIfNotExists([]byte(mailbox))
	}
	root := tx.Bucket([]byte(attachmentsBucket))
	if root == nil {
		return nil, nil
	}
	accountBucket := root.Bucket([]byte(account))
	if accountBucket == nil {
		return nil, nil
	}
	return accountBucket.Bucket([]byte(mailbox)), nil
}

func recordKey(uid uint64, partNo string) []byte {
	return []byte(fmt.Sprintf("%d.%s", uid, partNo))
}
