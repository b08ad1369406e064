package consent

import (
	"fmt"
	"strings"

	"github.com/prebid/consent-string/errortypes"
)

// Language is a two letter consent language code, stored in lower case.
type Language string

// ParseLanguage case-folds code and checks that it is exactly two letters a-z.
func ParseLanguage(code string) (Language, error) {
	if len(code) != 2 || !isLetter(code[0]) || !isLetter(code[1]) {
		return "", &errortypes.InvalidLanguageCode{Message: fmt.Sprintf("consent language %q must be two letters a-z", code)}
	}
	return Language(strings.ToLower(code)), nil
}

func (l Language) String() string {
	return string(l)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
