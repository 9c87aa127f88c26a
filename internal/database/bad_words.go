package database

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

// BadWordsURL is the default word list source
const BadWordsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBadWords downloads the word list from url when the bad_words table is
// empty and returns how many words were added.
func (db *DB) SeedBadWords(ctx context.Context, client *http.Client, url string) (int, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to check bad words count: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build bad words request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	insert := db.Dialect.InsertIgnoreQuery("bad_words", []string{"word"})
	added := 0
	err = db.WithTx(func(tx *Tx) error {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			word := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if word == "" {
				continue
			}
			if _, err := tx.Exec(insert, word); err != nil {
				return fmt.Errorf("failed to insert bad word: %w", err)
			}
			added++
		}
		return scanner.Err()
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// FindBadWord returns the first listed word found among the words of text
func (db *DB) FindBadWord(text string) (string, bool, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM bad_words WHERE word = ?", word).Scan(&count); err != nil {
			return "", false, fmt.Errorf("failed to check bad word: %w", err)
		}
		if count > 0 {
			return word, true, nil
		}
	}
	return "", false, nil
}
