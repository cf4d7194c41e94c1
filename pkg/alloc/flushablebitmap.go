package alloc

// BitmapStore persists part of a bitmap: the bytes in `[from, to)`.
type BitmapStore interface {
	PutRange(bitmap Bitmap, from, to uint64) error
}

// FlushableBitmap tracks which bytes changed since the last flush and keeps
// a running free count. It is not safe for concurrent use.
type FlushableBitmap struct {
	bitmap Bitmap
	store  BitmapStore
	free   uint64

	// dirty byte range; empty when lo >= hi
	lo, hi uint64
}

func NewFlushable(bitmap Bitmap, store BitmapStore) *FlushableBitmap {
	return &FlushableBitmap{
		bitmap: bitmap,
		store:  store,
		free:   bitmap.FreeCount(),
	}
}

func (fb *FlushableBitmap) Alloc() (uint64, bool) {
	value, ok := fb.bitmap.Alloc()
	if ok {
		fb.free--
		fb.touch(value)
	}
	return value, ok
}

func (fb *FlushableBitmap) Reserve(value uint64) { fb.set(value, true) }

func (fb *FlushableBitmap) Free(value uint64) { fb.set(value, false) }

func (fb *FlushableBitmap) Get(value uint64) bool { return fb.bitmap.Get(value) }

func (fb *FlushableBitmap) FreeCount() uint64 { return fb.free }

// Flush writes the dirty byte range, if any.
func (fb *FlushableBitmap) Flush() error {
	if fb.lo >= fb.hi {
		return nil
	}
	if err := fb.store.PutRange(fb.bitmap, fb.lo, fb.hi); err != nil {
		return err
	}
	fb.lo, fb.hi = 0, 0
	return nil
}

func (fb *FlushableBitmap) set(value uint64, high bool) {
	if fb.bitmap.Get(value) == high {
		return
	}
	fb.bitmap.Set(value, high)
	if high {
		fb.free--
	} else {
		fb.free++
	}
	fb.touch(value)
}

func (fb *FlushableBitmap) touch(value uint64) {
	i := value / bitsPerByte
	if fb.lo >= fb.hi {
		fb.lo, fb.hi = i, i+1
		return
	}
	fb.lo, fb.hi = min(fb.lo, i), max(fb.hi, i+1)
}
