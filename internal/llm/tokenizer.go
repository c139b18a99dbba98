package llm

import (
	"sync"

	logger "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

// cl100k_base is close enough for budgeting with any chat model.
var loadCodec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.Cl100kBase)
})

// CountTokens returns the cl100k_base token count of text.
func CountTokens(text string) (int, error) {
	codec, err := loadCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// PromptTokens estimates the size of a request made of the given messages.
// Messages that cannot be encoded fall back to one token per four bytes.
func PromptTokens(messages ...string) int {
	total := 0
	for _, m := range messages {
		n, err := CountTokens(m)
		if err != nil {
			logger.Debugf("token count failed, estimating from length: %v", err)
			n = (len(m) + 3) / 4
		}
		total += n
	}
	return total
}
