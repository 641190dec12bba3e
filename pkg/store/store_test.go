package store_test

import (
	"path/filepath"
	"testing"

	"src.lsh.sh/pkg/store"
	"src.lsh.sh/pkg/store/storetest"
	"src.lsh.sh/pkg/testutil"
)

func TestCmd(t *testing.T) {
	storetest.TestCmd(t, store.MustTempStore(t))
}

func TestDir(t *testing.T) {
	storetest.TestDir(t, store.MustTempStore(t))
}

func TestUniversalVar(t *testing.T) {
	storetest.TestUniversalVar(t, store.MustTempStore(t))
}

func TestNewStore_Persists(t *testing.T) {
	dbname := filepath.Join(testutil.TempDir(t), "db")
	st, err := store.NewStore(dbname)
	if err != nil {
		t.Fatal(err)
	}
	st.SetUniversalVar("x", []string{"1", "2"})
	st.Close()

	st, err = store.NewStore(dbname)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got, err := st.UniversalVar("x")
	if err != nil || len(got) != 2 || got[1] != "2" {
		t.Errorf("UniversalVar(x) after reopening -> %q, %v", got, err)
	}
}
