package cloud

import (
	"strconv"
	"strings"
)

// EncodeIdentity packs a cloud id and ownership flag into the string
// stored on a local snippet, "{id}_1" for owned snippets and "{id}_0"
// otherwise.
func EncodeIdentity(cloudID int64, isOwner bool) string {
	flag := "0"
	if isOwner {
		flag = "1"
	}
	return strconv.FormatInt(cloudID, 10) + "_" + flag
}

// DecodeIdentity is the inverse of EncodeIdentity. It never fails:
// a missing ownership segment means not owner, and a malformed id
// decodes to zero.
func DecodeIdentity(identity string) (cloudID int64, isOwner bool) {
	parts := strings.Split(identity, "_")

	cloudID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		cloudID = 0
	}

	if len(parts) > 1 {
		isOwner = parts[1] != "" && parts[1] != "0"
	}
	return cloudID, isOwner
}
