package test

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// MustBe uses reflect.DeepEqual to assert that thing1 and thing2 are equal, and
// fails otherwise.
func MustBe(t testing.TB, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) == 0 {
		ctx = ""
	} else {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", ctx, thing1, thing2)
	}
}

// ErrNil asserts that the err is nil and fails otherwise.
func ErrNil(t testing.TB, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// MustTempDir creates a temporary directory which is removed when the test
// ends.
func MustTempDir(t testing.TB, prefix string) string {
	t.Helper()
	d, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(d) })
	return d
}

// MustFile writes contents to a new file in dir and returns its name.
func MustFile(t testing.TB, dir, contents string) (name string) {
	t.Helper()
	f, err := ioutil.TempFile(dir, "")
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	defer f.Close()

	_, err = io.WriteString(f, contents)
	if err != nil {
		t.Fatalf("writing contents: %v", err)
	}

	return f.Name()
}

// MustWriteFile writes contents to dir/rel, creating parent directories as
// needed, and returns the full path.
func MustWriteFile(t testing.TB, dir, rel, contents string) string {
	t.Helper()
	name := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("making parent dirs for %s: %v", name, err)
	}
	if err := ioutil.WriteFile(name, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return name
}
