package queue

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

// namePrefixes resemble ordinary application cache and log files.
var namePrefixes = []string{"cache", "tmp", "log", "sys", "data", "config", "pref", "info"}

// artifactName returns a fresh file name of the form
// .<prefix>_<base36 millis>_<32 hex chars>. The random part carries 128 bits.
func artifactName(now time.Time) string {
	var suffix [16]byte
	_, _ = rand.Read(suffix[:])

	prefix := namePrefixes[0]
	if n, err := rand.Int(rand.Reader, big.NewInt(int64(len(namePrefixes)))); err == nil {
		prefix = namePrefixes[n.Int64()]
	}

	return "." + prefix + "_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + hex.EncodeToString(suffix[:])
}

// dirName returns a random directory name for view.
func dirName(view View) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return view.dirPrefix() + "_" + hex.EncodeToString(b[:])
}
