package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultAvatarSize = 80

// GetGravatarURL returns the avatar shown on the profile and in member lists.
// Unknown addresses get the "mystery person" image.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultAvatarSize
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
