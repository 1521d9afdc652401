package flow

import "encoding/binary"

// Key layout (all keys ASCII-prefixed so keyspaces interleave cleanly with
// the project and items stores):
//
//	flowq/{queueID}                            -> Queue JSON
//	flowqname/{projectID}/{name}               -> queueID
//	flowm/{itemType}:{itemID}                  -> live Membership JSON
//	floworder/{queueID}/{position 4B BE}       -> ref token
//	flowhist/{queueID}/{archiveID}             -> archived Membership JSON
//	flowihist/{itemType}:{itemID}/{archiveID}  -> archived Membership JSON
//
// Positions are fixed-width big-endian so lexical iteration is positional
// order. Archive IDs are time-ordered, so history scans are chronological.
const (
	prefixQueue     = "flowq/"
	prefixQueueName = "flowqname/"
	prefixMember    = "flowm/"
	prefixOrder     = "floworder/"
	prefixHist      = "flowhist/"
	prefixItemHist  = "flowihist/"
)

func queueKey(queueID string) []byte { return []byte(prefixQueue + queueID) }

func queueNameKey(projectID, name string) []byte {
	return []byte(prefixQueueName + projectID + "/" + name)
}

func queueNamePrefix(projectID string) []byte {
	return []byte(prefixQueueName + projectID + "/")
}

func memberKey(token string) []byte { return []byte(prefixMember + token) }

func orderKey(queueID string, position int) []byte {
	prefix := prefixOrder + queueID + "/"
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], uint32(position))
	return key
}

func orderPrefix(queueID string) []byte { return []byte(prefixOrder + queueID + "/") }

func histKey(queueID, archiveID string) []byte {
	return []byte(prefixHist + queueID + "/" + archiveID)
}

func histPrefix(queueID string) []byte { return []byte(prefixHist + queueID + "/") }

func itemHistKey(token, archiveID string) []byte {
	return []byte(prefixItemHist + token + "/" + archiveID)
}

func itemHistPrefix(token string) []byte { return []byte(prefixItemHist + token + "/") }
