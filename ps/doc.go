// Package ps provides the persistence layer for JsonDB.
//
// The layer owns a single backing file and reads or writes it as a whole;
// there is no incremental persistence. Files are replaced atomically via a
// temp file and rename. In versioned mode every save is also recorded as a
// Git commit, giving history tracking and point-in-time restore without any
// worktree checkout.
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parent directories are created as needed, and a fresh backing file is
// initialized with an empty JSON object.
//
// # Version History
//
// NewVersionedPersistence keeps a Git repository next to the backing file:
//
//	persistence, _ := ps.NewVersionedPersistence("/path/to/data.json")
//	txn, _ := persistence.Save(data, identity, "Creating table users")
//	history := persistence.History()
//	restored, _ := persistence.RestoreTo(history[1], identity)
//
// # Backup
//
// Export and Import copy the backing file to and from local paths, file://,
// http(s):// and s3:// URLs.
//
// # Concurrency
//
// A Persistence value serializes its own file access with a mutex, making
// one process safe. Concurrent access to the same backing file from multiple
// processes is undefined behavior: the last writer wins.
package ps
