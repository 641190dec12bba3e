package store

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
	. "src.lsh.sh/pkg/store/storedefs"
)

func init() {
	initDB["initialize command history table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCmd))
		return err
	}
}

// On-disk form of a history entry.
type cmdRecord struct {
	Text string    `yaml:"text"`
	Time time.Time `yaml:"time"`
}

// AddCmd appends a command to the history and returns its sequence number.
func (s *dbStore) AddCmd(text string) (int, error) {
	data, err := yaml.Marshal(cmdRecord{Text: text, Time: time.Now()})
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCmd))
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	return int(seq), err
}

// DelCmd deletes the history entry with the given sequence number. It returns
// ErrNoMatchingCmd if there is no such entry.
func (s *dbStore) DelCmd(seq int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCmd))
		if b.Get(seqKey(uint64(seq))) == nil {
			return ErrNoMatchingCmd
		}
		return b.Delete(seqKey(uint64(seq)))
	})
}

// CmdsWithSeq returns the history entries with sequence numbers in
// [from, upto), oldest first. An upto of -1 means no upper bound.
func (s *dbStore) CmdsWithSeq(from, upto int) ([]Cmd, error) {
	var cmds []Cmd
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketCmd)).Cursor()
		for k, v := c.Seek(seqKey(uint64(from))); k != nil; k, v = c.Next() {
			seq := int(binary.BigEndian.Uint64(k))
			if upto >= 0 && seq >= upto {
				break
			}
			var rec cmdRecord
			if err := yaml.Unmarshal(v, &rec); err != nil {
				return err
			}
			cmds = append(cmds, Cmd{Text: rec.Text, Seq: seq, Time: rec.Time})
		}
		return nil
	})
	return cmds, err
}

// Keys are big-endian so that the cursor walks them in sequence order.
func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
