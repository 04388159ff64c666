/*
code.go - Deterministic verification codes

PURPOSE:
  Derives the short claim code that gates claim/reject of a transfer.
  The derivation is a pure function of (sender, receiver, timestamp):
  stateless and deterministic, so the same inputs always yield the same
  code.

SECURITY NOTE:
  This is NOT a cryptographic derivation. The code is a truncation of
  public inputs, so anyone who can observe the sender, receiver and the
  approximate creation time (e.g. from event logs) can compute it. It is
  preserved here as-is; a hardened deployment should replace it with a
  securely-random or HMAC-derived secret delivered out-of-band.
*/
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
)

// codeBytes is the number of leading bytes kept from the concatenated
// inputs. Hex encoding doubles it: codes are always 12 characters.
const codeBytes = 6

// GenerateCode derives the verification code for a transfer created at the
// given time. Inputs are concatenated as sender bytes, receiver bytes,
// then the big-endian 8-byte unix timestamp; the first 6 bytes of that
// concatenation are upper-case hex encoded.
func GenerateCode(sender, receiver AccountID, at time.Time) string {
	buf := make([]byte, 0, len(sender)+len(receiver)+8)
	buf = append(buf, sender...)
	buf = append(buf, receiver...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(at.Unix()))
	// The timestamp alone contributes 8 bytes, so buf always has enough.
	return strings.ToUpper(hex.EncodeToString(buf[:codeBytes]))
}
