package storage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/weberc2/blockfs/pkg/directory"
	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Mknod creates an empty inode with `mode` at `path`. A mode without type
// bits creates a regular file.
func (s *Storage) Mknod(path string, mode Mode) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("mknod", err, "path", path, "mode", mode.String()) }()

	if mode&ModeTypeMask == 0 {
		mode |= ModeRegular
	}
	if err := s.mknod(path, mode); err != nil {
		return err
	}
	return s.flush("creating `" + path + "`")
}

// Mkdir creates an empty directory at `path`.
func (s *Storage) Mkdir(path string, perm Mode) error {
	return s.Mknod(path, ModeDir|perm&ModePermMask)
}

func (s *Storage) mknod(path string, mode Mode) error {
	var parent Inode
	name, err := s.resolveNewEntry(path, &parent)
	if err != nil {
		return fmt.Errorf("creating `%s`: %w", path, err)
	}

	var child Inode
	if err := inode.Alloc(s.fs, &child); err != nil {
		return fmt.Errorf("creating `%s`: %w", path, err)
	}
	child.Mode = mode
	if err := s.fs.InodeStore.Put(&child); err != nil {
		return fmt.Errorf("creating `%s`: %w", path, err)
	}

	if err := directory.Insert(s.fs, &parent, name, child.Ino); err != nil {
		child.Refs = 0
		if freeErr := inode.Free(s.fs, &child); freeErr != nil {
			err = fmt.Errorf("%w (releasing inode `%d`: %v)", err, child.Ino, freeErr)
		}
		return fmt.Errorf("creating `%s`: %w", path, err)
	}
	return nil
}

// Unlink removes the entry at `path`. The inode is reclaimed once its last
// entry is gone; a directory's last entry can only be removed when the
// directory is empty.
func (s *Storage) Unlink(path string) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("unlink", err, "path", path) }()

	if err := s.unlink(path); err != nil {
		return err
	}
	return s.flush("unlinking `" + path + "`")
}

func (s *Storage) unlink(path string) error {
	parentPath, name, err := directory.SplitPath(path)
	if err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	if name == "" {
		return fmt.Errorf("unlinking root directory: %w", InvalidArgumentErr)
	}

	var parent Inode
	if err := directory.ResolveInode(s.fs, parentPath, &parent); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	ino, err := directory.Lookup(s.fs, &parent, name)
	if err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}

	var target Inode
	if err := inode.Get(s.fs, ino, &target); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	if target.Mode.IsDir() && target.Refs <= 1 {
		entries, err := directory.Entries(s.fs, &target)
		if err != nil {
			return fmt.Errorf("unlinking `%s`: %w", path, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf(
				"unlinking `%s`: `%d` entries: %w",
				path,
				len(entries),
				DirNotEmptyErr,
			)
		}
	}

	if err := directory.Remove(s.fs, &parent, name); err != nil {
		return fmt.Errorf("unlinking `%s`: %w", path, err)
	}
	return nil
}

// Link adds a new entry at `newPath` for the inode at `existing` and bumps
// its link count. `newPath` must not exist yet.
func (s *Storage) Link(existing, newPath string) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("link", err, "existing", existing, "new", newPath) }()

	if err := s.link(existing, newPath); err != nil {
		return err
	}
	return s.flush("linking `" + newPath + "`")
}

func (s *Storage) link(existing, newPath string) error {
	target, err := directory.ResolvePath(s.fs, existing)
	if err != nil {
		return fmt.Errorf("linking `%s` to `%s`: %w", newPath, existing, err)
	}

	var parent Inode
	name, err := s.resolveNewEntry(newPath, &parent)
	if err != nil {
		return fmt.Errorf("linking `%s` to `%s`: %w", newPath, existing, err)
	}
	if err := directory.Insert(s.fs, &parent, name, target); err != nil {
		return fmt.Errorf("linking `%s` to `%s`: %w", newPath, existing, err)
	}

	// fetched after the insert, which may have resized the target if it is
	// also the parent
	var linked Inode
	if err := s.fs.InodeStore.Get(target, &linked); err != nil {
		return fmt.Errorf("linking `%s` to `%s`: %w", newPath, existing, err)
	}
	linked.Refs++
	if err := s.fs.InodeStore.Put(&linked); err != nil {
		return fmt.Errorf("linking `%s` to `%s`: %w", newPath, existing, err)
	}
	return nil
}

// Rename links `to` to the inode at `from` and then unlinks `from`. The two
// steps are not atomic: if unlinking fails, both paths name the inode. If
// linking fails, nothing is unlinked.
func (s *Storage) Rename(from, to string) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("rename", err, "from", from, "to", to) }()

	// compared component-wise, the same way paths resolve
	fromNames, toNames := directory.Components(from), directory.Components(to)
	if len(fromNames) < 1 {
		return fmt.Errorf("renaming root directory: %w", InvalidArgumentErr)
	}
	if slices.Equal(fromNames, toNames) {
		if _, err := directory.ResolvePath(s.fs, from); err != nil {
			return fmt.Errorf("renaming `%s` to `%s`: %w", from, to, err)
		}
		return nil
	}
	if len(toNames) > len(fromNames) &&
		slices.Equal(fromNames, toNames[:len(fromNames)]) {
		return fmt.Errorf(
			"renaming `%s` into its own subtree `%s`: %w",
			from,
			to,
			InvalidArgumentErr,
		)
	}

	if err := s.link(from, to); err != nil {
		return fmt.Errorf("renaming `%s` to `%s`: %w", from, to, err)
	}
	if err := s.unlink(from); err != nil {
		if flushErr := s.fs.Flush(); flushErr != nil {
			err = fmt.Errorf("%w (flushing: %v)", err, flushErr)
		}
		return fmt.Errorf(
			"renaming `%s` to `%s`: linked destination but failed to "+
				"unlink source: %w",
			from,
			to,
			err,
		)
	}
	return s.flush("renaming `" + from + "`")
}

// resolveNewEntry checks that `path` does not exist and that its parent is a
// directory, returning the new entry's name and fetching the parent.
func (s *Storage) resolveNewEntry(path string, parent *Inode) (string, error) {
	parentPath, name, err := directory.SplitPath(path)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("root directory: %w", AlreadyExistsErr)
	}

	if _, err := directory.ResolvePath(s.fs, path); err == nil {
		return "", AlreadyExistsErr
	} else if !errors.Is(err, NotFoundErr) {
		return "", err
	}

	if err := directory.ResolveInode(s.fs, parentPath, parent); err != nil {
		if errors.Is(err, NotFoundErr) {
			return "", fmt.Errorf("%w: %v", ParentNotFoundErr, err)
		}
		return "", err
	}
	if !parent.Mode.IsDir() {
		return "", fmt.Errorf(
			"%w: `%s`: %w",
			ParentNotFoundErr,
			parentPath,
			NotADirErr,
		)
	}
	return name, nil
}
