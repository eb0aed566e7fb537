package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/jsondb/JsonDB/core"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrNotVersioned   = errors.New("persistence layer has no version history")
)

// emptyDatabase is the bootstrap content written when the backing file does
// not exist yet.
var emptyDatabase = []byte("{}")

// Persistence owns the backing file of a document store. It reads and writes
// the file as a whole; there is no incremental persistence. In versioned
// mode every save is additionally recorded as a Git commit, providing
// history tracking and point-in-time restore.
type Persistence struct {
	mu           sync.Mutex
	fs           billy.Filesystem
	name         string // backing file name within fs
	repo         *git.Repository // nil unless versioned
	isMemoryMode bool
}

// IsInitialized returns true if the persistence layer has a backing
// filesystem.
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.fs != nil
}

// IsVersioned returns true if saves are recorded as Git commits.
func (p *Persistence) IsVersioned() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence creates an ephemeral, versioned persistence layer
// backed by an in-memory filesystem. Intended for tests and throwaway
// databases.
func NewMemoryPersistence() (Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return Persistence{}, err
	}

	p := Persistence{
		fs:           wt,
		name:         "database.json",
		repo:         repo,
		isMemoryMode: true,
	}
	if err := p.bootstrap(); err != nil {
		return Persistence{}, err
	}
	return p, nil
}

// NewFilePersistence creates a persistence layer for the backing file at
// path. Parent directories are created if missing, and an empty-object file
// is written if the file does not exist yet.
func NewFilePersistence(path string) (Persistence, error) {
	fs, name, err := openDir(path)
	if err != nil {
		return Persistence{}, err
	}

	p := Persistence{fs: fs, name: name}
	if err := p.bootstrap(); err != nil {
		return Persistence{}, err
	}
	return p, nil
}

// NewVersionedPersistence is like NewFilePersistence but additionally keeps
// a Git repository next to the backing file, committing every save.
func NewVersionedPersistence(path string) (Persistence, error) {
	wt, name, err := openDir(path)
	if err != nil {
		return Persistence{}, err
	}

	fs, err := wt.Chroot(".git")
	if err != nil {
		return Persistence{}, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	_, statErr := os.Stat(fs.Root())
	if statErr != nil {
		// Directory doesn't exist, initialize new repo
		repo, err = git.Init(storer, git.WithWorkTree(wt))
		if err != nil {
			return Persistence{}, err
		}
	} else {
		// Directory exists, open existing repo
		repo, err = git.Open(storer, wt)
		if err != nil {
			return Persistence{}, err
		}
	}

	p := Persistence{fs: wt, name: name, repo: repo}
	if err := p.bootstrap(); err != nil {
		return Persistence{}, err
	}
	return p, nil
}

// openDir resolves the backing file path into a filesystem rooted at its
// parent directory, creating intermediate directories as needed.
func openDir(path string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return osfs.New(dir), filepath.Base(abs), nil
}

// bootstrap writes the empty-object file if the backing file is absent.
func (p *Persistence) bootstrap() error {
	if _, err := p.fs.Stat(p.name); err == nil {
		return nil
	}
	return p.writeFile(emptyDatabase)
}

// Load reads the full contents of the backing file.
func (p *Persistence) Load() ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := util.ReadFile(p.fs, p.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read backing file %s: %w", p.name, err)
	}
	return data, nil
}

// Save overwrites the backing file with data. In versioned mode the new
// contents are also committed with identity as the author and message as the
// commit message; the resulting Transaction is returned. In plain mode the
// zero Transaction is returned.
func (p *Persistence) Save(data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writeFile(data); err != nil {
		return Transaction{}, err
	}

	if p.repo == nil {
		return Transaction{}, nil
	}
	return p.commit(data, identity, message)
}

// writeFile replaces the backing file atomically: the new contents go to a
// temp file in the same directory, then rename over the target.
func (p *Persistence) writeFile(data []byte) error {
	tmp, err := p.fs.TempFile("", "."+p.name+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		p.fs.Remove(tmpName)
		return fmt.Errorf("failed to write backing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		p.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := p.fs.Rename(tmpName, p.name); err != nil {
		p.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace backing file: %w", err)
	}

	return nil
}
