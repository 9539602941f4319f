package util

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4"
)

const (
	NoCompression     = 0
	ZlibCompression   = 1
	SnappyCompression = 2
	LZ4Compression    = 3
)

// ParseContentEncoding maps the value of a Content-Encoding header to a
// compression method.
func ParseContentEncoding(name string) (method uint8, err error) {
	switch name {
	case "lz4":
		method = LZ4Compression
	case "snappy":
		method = SnappyCompression
	case "deflate", "zlib":
		method = ZlibCompression
	case "", "identity":
		method = NoCompression
	default:
		err = fmt.Errorf("unsupported content encoding: %s", name)
	}
	return
}

// ContentEncoding is the inverse of ParseContentEncoding.
func ContentEncoding(method uint8) string {
	switch method {
	case LZ4Compression:
		return "lz4"
	case SnappyCompression:
		return "snappy"
	case ZlibCompression:
		return "deflate"
	}
	return ""
}

// ErrTooLarge is returned by Decompress when the decompressed data would
// exceed the given limit.
var ErrTooLarge = errors.New("decompressed data exceeds size limit")

// Decompress undoes Compress, refusing to produce more than limit bytes.
// LZ4 data carries the decompressed length as a 4 byte big endian prefix.
func Decompress(data []byte, method uint8, limit int) ([]byte, error) {
	switch method {
	case LZ4Compression:
		if len(data) < 4 {
			return nil, errors.New("lz4 data is too short")
		}
		decompressedLen := binary.BigEndian.Uint32(data[:4])
		if uint64(decompressedLen) > uint64(limit) {
			return nil, ErrTooLarge
		}
		decompressed := make([]byte, decompressedLen)
		n, err := lz4.UncompressBlock(data[4:], decompressed)
		if err != nil {
			return nil, err
		}
		return decompressed[:n], nil
	case SnappyCompression:
		decodedLen, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, err
		}
		if decodedLen > limit {
			return nil, ErrTooLarge
		}
		return snappy.Decode(nil, data)
	case ZlibCompression:
		reader, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		// one byte more than allowed tells an exact fit from an overflow
		decompressed, err := io.ReadAll(io.LimitReader(reader, int64(limit)+1))
		if err != nil {
			return nil, err
		}
		if len(decompressed) > limit {
			return nil, ErrTooLarge
		}
		return decompressed, nil
	}
	if len(data) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func Compress(data []byte, method uint8) ([]byte, error) {
	switch method {
	case LZ4Compression:
		hashTable := make([]int, 64<<10)
		maxCompressedLen := lz4.CompressBlockBound(len(data))
		buf := make([]byte, maxCompressedLen+4)
		binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))
		n, err := lz4.CompressBlock(data, buf[4:], hashTable)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(data) {
			return nil, errors.New("data is not compressible")
		}
		return buf[:n+4], nil
	case SnappyCompression:
		return snappy.Encode(nil, data), nil
	case ZlibCompression:
		var b bytes.Buffer
		w := zlib.NewWriter(&b)
		w.Write(data)
		w.Close()
		return b.Bytes(), nil
	}
	return data, nil
}

// WaitForWaitGroupWithTimeout waits for a wait group wg but times out.
func WaitForWaitGroupWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		return false
	case <-time.After(timeout):
		return true
	}
}

var interrupted uint32

// InstallSignalHandler installs a signal handler for interrupts and TERM signal.
func InstallSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		atomic.StoreUint32(&interrupted, 1)
		signal.Stop(c)
	}()
}

// Interrupted returns whether an interrupt or TERM signal has been received
func Interrupted() bool {
	return atomic.LoadUint32(&interrupted) == 1
}
