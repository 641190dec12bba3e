package store

import (
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
	. "src.lsh.sh/pkg/store/storedefs"
)

func init() {
	initDB["initialize universal variable table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketUniversalVar))
		return err
	}
}

// UniversalVar gets the value of a universal variable.
func (s *dbStore) UniversalVar(name string) ([]string, error) {
	var values []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketUniversalVar))
		v := b.Get([]byte(name))
		if v == nil {
			return ErrNoVar
		}
		return yaml.Unmarshal(v, &values)
	})
	if values == nil && err == nil {
		values = []string{}
	}
	return values, err
}

// SetUniversalVar sets the value of a universal variable.
func (s *dbStore) SetUniversalVar(name string, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketUniversalVar))
		return b.Put([]byte(name), data)
	})
}

// DelUniversalVar deletes a universal variable. It returns ErrNoVar if the
// variable does not exist.
func (s *dbStore) DelUniversalVar(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketUniversalVar))
		if b.Get([]byte(name)) == nil {
			return ErrNoVar
		}
		return b.Delete([]byte(name))
	})
}

// UniversalVarNames returns the names of all universal variables, in
// lexicographical order.
func (s *dbStore) UniversalVarNames() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketUniversalVar)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
