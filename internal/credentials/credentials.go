package credentials

import (
	"crypto/rand"
	"math/big"
)

// InviteAlphabet omits characters that are easy to misread (0/O, 1/I)
const InviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLength is the length of a student invite code
const InviteCodeLength = 8

// Word lists for suggesting account names
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "cool", "swift", "clever", "jolly",
	"mighty", "super", "wild", "funny", "lucky", "magic", "bouncy", "daring",
	"eager", "flying", "gentle", "jazzy", "lively", "merry", "quick", "snappy",
	"turbo", "zippy", "bold", "cosmic", "epic", "groovy",
}

var nouns = []string{
	"dragon", "tiger", "eagle", "dolphin", "panda", "lion", "wolf", "bear",
	"fox", "hawk", "shark", "phoenix", "rocket", "ninja", "wizard", "knight",
	"robot", "hero", "ranger", "captain", "comet", "thunder", "storm", "racer",
	"typist", "keys", "falcon", "otter", "koala", "lynx",
}

// GenerateInviteCode returns a random invite code for a student account
func GenerateInviteCode() (string, error) {
	return randomString(InviteAlphabet, InviteCodeLength)
}

// SuggestAccountName proposes an account name such as "swifttiger42". It
// always satisfies the account name rules.
func SuggestAccountName() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}
	digits, err := randomString("0123456789", 2)
	if err != nil {
		return "", err
	}

	name := adjective + noun
	if len(name) > 18 {
		name = name[:18]
	}
	return name + digits, nil
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
