package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/jsondb/JsonDB/core"
)

// Transaction identifies one committed state of the backing file in
// versioned mode.
type Transaction struct {
	Id     string
	When   time.Time
	Author string // "Name <email>" format
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// commit records data as a Git commit using the plumbing API: a blob for the
// backing file, a single-entry tree, and a commit advancing the current
// branch. No worktree checkout is involved.
func (p *Persistence) commit(data []byte, identity core.Identity, message string) (Transaction, error) {
	blobHash, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, err
	}

	tree := &object.Tree{Entries: []object.TreeEntry{{
		Name: p.name,
		Mode: filemode.Regular,
		Hash: blobHash,
	}}}

	obj := p.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode tree: %w", err)
	}
	treeHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store tree: %w", err)
	}

	// Get parent commit
	var parentHashes []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parentHashes,
	}

	obj = p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	// Update HEAD reference
	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := p.repo.Storer.SetReference(ref); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:     commitHash.String(),
		When:   sig.When,
		Author: fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
	}, nil
}

// createBlob creates a blob object directly in the object store.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// LatestTransaction returns the most recent transaction, or the zero
// Transaction if there is no history yet.
func (p *Persistence) LatestTransaction() Transaction {
	if !p.IsVersioned() {
		return Transaction{}
	}

	headRef, err := p.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:     headRef.Hash().String(),
		When:   commit.Committer.When,
		Author: author,
	}
}

// History returns all recorded transactions, newest first.
func (p *Persistence) History() []Transaction {
	if !p.IsVersioned() {
		return nil
	}

	var transactions []Transaction

	cIter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:     c.Hash.String(),
			When:   c.Committer.When,
			Author: fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		})
		return nil
	})

	return transactions
}

// TransactionsSince returns all transactions committed at or after asof.
func (p *Persistence) TransactionsSince(asof time.Time) []Transaction {
	if !p.IsVersioned() {
		return nil
	}

	var transactions []Transaction

	cIter, err := p.repo.Log(&git.LogOptions{
		Since: &asof,
	})
	if err != nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:   c.Hash.String(),
			When: c.Committer.When,
		})
		return nil
	})

	return transactions
}

// RestoreTo rewrites the backing file with its contents as of the given
// transaction and records the restore as a new commit. The restored contents
// are returned so callers can refresh their in-memory state.
func (p *Persistence) RestoreTo(asof Transaction, identity core.Identity) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	if !p.IsVersioned() {
		return nil, ErrNotVersioned
	}

	commit, err := p.repo.CommitObject(plumbing.NewHash(asof.Id))
	if err != nil {
		return nil, fmt.Errorf("transaction %s not found: %w", asof.Id, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction tree: %w", err)
	}

	file, err := tree.File(p.name)
	if err != nil {
		return nil, fmt.Errorf("backing file missing from transaction %s: %w", asof.Id, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction contents: %w", err)
	}

	data := []byte(contents)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writeFile(data); err != nil {
		return nil, err
	}
	if _, err := p.commit(data, identity, fmt.Sprintf("Restoring to transaction %s", asof.Id)); err != nil {
		return nil, err
	}

	return data, nil
}
