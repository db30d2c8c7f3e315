package permissions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakePlatform records every primitive as "op path".
type fakePlatform struct {
	calls  []string
	failOn string
}

func (p *fakePlatform) SetPermissions(path string, mode fs.FileMode) error {
	p.calls = append(p.calls, fmt.Sprintf("chmod %s %o", path, mode))
	if path == p.failOn {
		return errors.New("EPERM")
	}
	return nil
}

func (p *fakePlatform) TakeOwnership(path string, includeGroup bool) error {
	p.calls = append(p.calls, fmt.Sprintf("chown %s %v", path, includeGroup))
	if path == p.failOn {
		return errors.New("EPERM")
	}
	return nil
}

type fakeFiles struct {
	dirs   map[string][]string
	files  map[string]bool
	broken map[string]bool
	listed []string
}

func (f *fakeFiles) Exists(path string) bool {
	_, dir := f.dirs[path]
	return dir || f.files[path]
}

func (f *fakeFiles) IsDir(path string) bool {
	_, ok := f.dirs[path]
	return ok
}

func (f *fakeFiles) Descendants(path string) ([]string, error) {
	f.listed = append(f.listed, path)
	if f.broken[path] {
		return nil, errors.New("opendir: permission denied")
	}
	return f.dirs[path], nil
}

func newFixture() (*Utils, *fakePlatform, *fakeFiles) {
	plat := &fakePlatform{}
	files := &fakeFiles{
		dirs: map[string][]string{
			"/d":       {"/d/a", "/d/sub", "/d/sub/b"},
			"/d/sub":   {"/d/sub/b"},
			"/two":     {"/two/file", "/two/dir"},
			"/two/dir": nil,
			"/one":     {"/one/f"},
			"/broken":  nil,
		},
		files: map[string]bool{
			"/f": true, "/d/a": true, "/d/sub/b": true,
			"/two/file": true, "/one/f": true,
		},
		broken: map[string]bool{"/broken": true},
	}
	return New(plat, files), plat, files
}

func TestSetPermissions_NonexistentPath(t *testing.T) {
	u, plat, files := newFixture()
	err := u.SetPermissions(context.Background(), "/missing", 0o644)

	var perr *Error
	if !errors.As(err, &perr) || perr.Reason != ReasonNotExist || perr.Path != "/missing" {
		t.Fatalf("error = %v, want nonexistent path", err)
	}
	if got, want := err.Error(), "/missing: path does not exist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrPermission) {
		t.Errorf("error does not match ErrPermission")
	}
	if len(plat.calls) != 0 || len(files.listed) != 0 {
		t.Errorf("calls before existence check: %v %v", plat.calls, files.listed)
	}
}

func TestTakeOwnership_NonexistentPath(t *testing.T) {
	u, plat, _ := newFixture()
	if err := u.TakeOwnership(context.Background(), "/missing", true); !errors.Is(err, ErrPermission) {
		t.Fatalf("error = %v, want ErrPermission", err)
	}
	if len(plat.calls) != 0 {
		t.Errorf("platform called: %v", plat.calls)
	}
}

func TestPlainFile(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(*Utils) error
		want []string
	}{
		{
			name: "set permissions",
			run:  func(u *Utils) error { return u.SetPermissions(ctx, "/f", 0o640) },
			want: []string{"chmod /f 640"},
		},
		{
			name: "take ownership",
			run:  func(u *Utils) error { return u.TakeOwnership(ctx, "/f", false) },
			want: []string{"chown /f false"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, plat, files := newFixture()
			if err := tt.run(u); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, plat.calls); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
			if len(files.listed) != 0 {
				t.Errorf("iterated a plain file: %v", files.listed)
			}
		})
	}
}

func TestSetPermissions_DirectoryWithTwoEntries(t *testing.T) {
	u, plat, _ := newFixture()
	if err := u.SetPermissions(context.Background(), "/two", 0o700); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"chmod /two 700", "chmod /two/file 700", "chmod /two/dir 700"}
	if diff := cmp.Diff(want, plat.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestTakeOwnership_Recursive(t *testing.T) {
	u, plat, files := newFixture()
	if err := u.TakeOwnership(context.Background(), "/d", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"chown /d true", "chown /d/a true", "chown /d/sub true", "chown /d/sub/b true"}
	if diff := cmp.Diff(want, plat.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	// Every entry is visited once, so nested directories are not listed again.
	if diff := cmp.Diff([]string{"/d"}, files.listed); diff != "" {
		t.Errorf("listed (-want +got):\n%s", diff)
	}
}

func TestBrokenIterator(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(*Utils) error
		want []string
	}{
		{
			name: "set permissions",
			run:  func(u *Utils) error { return u.SetPermissions(ctx, "/broken", 0o600) },
			want: []string{"chmod /broken 600"},
		},
		{
			name: "take ownership",
			run:  func(u *Utils) error { return u.TakeOwnership(ctx, "/broken", true) },
			want: []string{"chown /broken true"},
		},
		{
			name: "restrict",
			run:  func(u *Utils) error { return u.RestrictPermissions(ctx, "/broken") },
			want: []string{"chown /broken true"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, plat, _ := newFixture()
			err := tt.run(u)
			var perr *Error
			if !errors.As(err, &perr) || perr.Reason != ReasonIterate || perr.Path != "/broken" {
				t.Fatalf("error = %v, want cannot iterate", err)
			}
			if diff := cmp.Diff(tt.want, plat.calls); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFailFast(t *testing.T) {
	u, plat, _ := newFixture()
	plat.failOn = "/d/a"

	err := u.SetPermissions(context.Background(), "/d", 0o600)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	want := "cannot set permissions on /d/a: EPERM"
	if got := perr.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"chmod /d 600", "chmod /d/a 600"}, plat.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestRestrictPermissions_OwnershipFirst(t *testing.T) {
	u, plat, _ := newFixture()
	if err := u.RestrictPermissions(context.Background(), "/one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"chown /one true",
		"chown /one/f true",
		"chmod /one 600",
		"chmod /one/f 600",
	}
	if diff := cmp.Diff(want, plat.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestRestrictPermissions_OwnerFailureSkipsChmod(t *testing.T) {
	u, plat, _ := newFixture()
	plat.failOn = "/f"
	err := u.RestrictPermissions(context.Background(), "/f")
	var perr *Error
	if !errors.As(err, &perr) || perr.Reason != ReasonSetOwner {
		t.Fatalf("error = %v, want owner failure", err)
	}
	if diff := cmp.Diff([]string{"chown /f true"}, plat.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}
