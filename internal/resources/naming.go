package resources

import (
	"strings"
)

const maxBucketNameLength = 63

// BucketName builds "<prefix>-<runID>-<logical>" and folds it into S3's
// naming rules: lowercase letters, digits and hyphens, 3 to 63 characters,
// starting and ending with a letter or digit.
func BucketName(prefix, runID, logical string) string {
	raw := strings.ToLower(strings.Join([]string{prefix, runID, logical}, "-"))

	var b strings.Builder
	lastHyphen := false
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > maxBucketNameLength {
		name = strings.TrimRight(name[:maxBucketNameLength], "-")
	}
	for len(name) < 3 {
		name += "0"
	}
	return name
}
