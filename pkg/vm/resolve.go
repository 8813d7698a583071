package vm

import (
	"fmt"
	"log/slog"
)

// Resolve finds the most specific interpretation of an address. The checks
// run in a fixed order and the first match wins:
//
//  1. A code blob containing the address. Interpreter blobs narrow down to
//     the codelet containing the address, when there is one.
//  2. The code cache range, giving UnknownCode.
//  3. Metadata (class, method or constant pool). Failures of this probe,
//     including panics raised by the target, are logged and ignored.
//  4. RawAddress.
//
// Resolve never fails.
func Resolve(target Target, addr Address, logger *slog.Logger) Handle {
	if blob, ok := target.FindBlob(addr); ok {
		if blob.BlobKind() == BlobInterpreter {
			if codelet, ok := target.Interpreter().CodeletContaining(addr); ok {
				return codelet
			}
		}
		return blob
	}

	if target.CodeCache().Contains(addr) {
		return UnknownCode{Addr: addr}
	}

	if handle, ok := probeMetadata(target, addr, logger); ok {
		return handle
	}

	return RawAddress{Addr: addr}
}

func probeMetadata(target Target, addr Address, logger *slog.Logger) (handle Handle, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Debug("metadata probe panicked", slog.String("address", addr.String()), slog.String("panic", fmt.Sprint(r)))
			}
			handle, ok = nil, false
		}
	}()

	h, err := target.MetadataAt(addr)
	if err != nil {
		if logger != nil {
			logger.Debug("address is not metadata", slog.String("address", addr.String()), slog.Any("error", err))
		}
		return nil, false
	}
	if h == nil {
		return nil, false
	}
	return h, true
}
