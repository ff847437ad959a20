package relstore

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered collection of tuples backed by a single
// byte-oriented random-access file. Pages are addressed by byte offset
// pageNo * PageSize; tableId is a deterministic hash of the file's
// absolute path (§6).
type HeapFile struct {
	mu sync.Mutex

	desc        *TupleDesc
	backingFile string
	tableId     int
	bp          *BufferPool
}

// NewHeapFile opens (creating if necessary) fromFile as the backing store
// for a HeapFile with descriptor td, registered with buffer pool bp.
func NewHeapFile(fromFile string, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f, err := os.OpenFile(fromFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open heap file %s: %w", fromFile, err)
	}
	defer f.Close()
	return &HeapFile{
		desc:        td,
		backingFile: fromFile,
		tableId:     TableIdForPath(fromFile),
		bp:          bp,
	}, nil
}

// BackingFile returns the name of the file this HeapFile is stored in.
func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

// TableId returns the deterministic id derived from this file's absolute
// path.
func (f *HeapFile) TableId() int {
	return f.tableId
}

// Descriptor returns the TupleDesc supplied to NewHeapFile.
func (f *HeapFile) Descriptor() *TupleDesc {
	return f.desc
}

// NumPages returns ceil(fileLength / PageSize).
func (f *HeapFile) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPagesLocked()
}

func (f *HeapFile) numPagesLocked() int {
	fi, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	return int((fi.Size() + int64(PageSize) - 1) / int64(PageSize))
}

// readPage seeks to pid.PageNo*PageSize, reads PageSize bytes, and
// decodes them into a heapPage. If pageNo names a newly extended page
// beyond the current end of file, an empty page image is returned.
func (f *HeapFile) readPage(pageNo int) (Page, error) {
	pid := PageId{TableId: f.tableId, PageNo: pageNo}

	f.mu.Lock()
	numPages := f.numPagesLocked()
	f.mu.Unlock()
	if pageNo == numPages {
		return newHeapPage(f.desc, pid, f), nil
	}

	file, err := os.Open(f.backingFile)
	if err != nil {
		return nil, fmt.Errorf("open heap file for read: %w", err)
	}
	defer file.Close()

	buf := make([]byte, PageSize)
	n, err := file.ReadAt(buf, int64(pageNo)*int64(PageSize))
	if err != nil {
		return nil, DbException{IOError, fmt.Sprintf("read page %d: %v", pageNo, err)}
	}
	if n != PageSize {
		return nil, DbException{IOError, "unexpected EOF reading page"}
	}
	return decodeHeapPage(f.desc, pid, f, buf)
}

// writePage seeks to the page's offset and writes exactly PageSize bytes.
func (f *HeapFile) writePage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return DbException{SchemaMismatch, "writePage given a non-heapPage"}
	}
	data, err := hp.getPageData()
	if err != nil {
		return err
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open heap file for write: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteAt(data, int64(hp.PageNo())*int64(PageSize)); err != nil {
		return DbException{IOError, fmt.Sprintf("write page %d: %v", hp.PageNo(), err)}
	}
	return nil
}

// insertTuple scans pages 0..NumPages()-1 under READ_WRITE via the buffer
// pool; the first page with a free slot receives t. If none has space, a
// new page is allocated (flushed empty, then inserted into) and appended.
// Returns the pages dirtied by the insert.
func (f *HeapFile) insertTuple(tid TxnId, t *Tuple) ([]Page, error) {
	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		pg, err := f.bp.GetPage(tid, f, pageNo, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := pg.(*heapPage)
		if hp.getNumEmptySlots() == 0 {
			continue
		}
		if _, err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		hp.setDirty(tid, true)
		return []Page{hp}, nil
	}

	// No page had room: allocate a new, empty page at the end of the file.
	newPid := PageId{TableId: f.tableId, PageNo: numPages}
	empty := newHeapPage(f.desc, newPid, f)
	if err := f.writePage(empty); err != nil {
		return nil, err
	}

	pg, err := f.bp.GetPage(tid, f, numPages, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := pg.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// deleteTuple fetches t.Rid.Pid under READ_WRITE and deletes the tuple
// from its slot. Returns the dirtied page.
func (f *HeapFile) deleteTuple(tid TxnId, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, DbException{NotFound, "tuple has no record id"}
	}
	rid := *t.Rid
	pg, err := f.bp.GetPage(tid, f, rid.Pid.PageNo, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := pg.(*heapPage)
	if err := hp.deleteTuple(rid); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// Iterator produces a lazy, finite, restartable sequence over all pages
// 0..NumPages()-1, concatenating each page's tuple iterator. Each page
// fetch goes through the buffer pool under READ_ONLY.
func (f *HeapFile) Iterator(tid TxnId) (func() (*Tuple, error), error) {
	numPages := f.NumPages()
	pageNo := 0
	var pageIter func() (*Tuple, error)
	return func() (*Tuple, error) {
		for {
			if pageIter == nil {
				if pageNo >= numPages {
					return nil, nil
				}
				pg, err := f.bp.GetPage(tid, f, pageNo, ReadPerm)
				if err != nil {
					return nil, err
				}
				pageIter = pg.(*heapPage).iterator()
				pageNo++
			}
			t, err := pageIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				pageIter = nil
				continue
			}
			return t, nil
		}
	}, nil
}

// LoadFromCSV bulk-loads rows from a CSV-like file into the heap file,
// one transaction per row so the buffer pool never needs to hold the
// whole load in memory at once. hasHeader skips the first line;
// skipLastField drops a trailing separator some datasets emit.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Split(line, sep)
		if skipLastField && len(parts) > 0 {
			parts = parts[:len(parts)-1]
		}
		lineNo++
		if lineNo == 1 && hasHeader {
			continue
		}
		if len(parts) != len(f.desc.Fields) {
			return DbException{SchemaMismatch, fmt.Sprintf("line %d: expected %d fields, got %d", lineNo, len(f.desc.Fields), len(parts))}
		}

		fields := make([]Field, len(parts))
		for i, raw := range parts {
			switch f.desc.Fields[i].Kind {
			case IntKind:
				raw = strings.TrimSpace(raw)
				v, err := strconv.ParseInt(raw, 10, 32)
				if err != nil {
					return DbException{SchemaMismatch, fmt.Sprintf("line %d: %q is not an int", lineNo, raw)}
				}
				fields[i] = IntField{Value: int32(v)}
			case StringKind:
				fields[i] = NewStringField(raw)
			}
		}

		t, err := NewTuple(f.desc, fields)
		if err != nil {
			return err
		}

		tid := NewTxnId()
		if err := f.bp.BeginTransaction(tid); err != nil {
			return err
		}
		if _, err := f.insertTuple(tid, t); err != nil {
			f.bp.AbortTransaction(tid)
			return err
		}
		if err := f.bp.CommitTransaction(tid); err != nil {
			return err
		}
	}
	return scanner.Err()
}
