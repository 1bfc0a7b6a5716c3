package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/sweetpotato0/enrichrag/rag/tokenizer"
)

// Tokenizer adapts a tiktoken codec to tokenizer.Tokenizer.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

var _ tokenizer.Tokenizer = (*Tokenizer)(nil)

// New resolves the codec for a model name (gpt-4o, text-embedding-3-small)
// and falls back to treating name as an encoding (cl100k_base).
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns BPE token ids.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of BPE tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// DecodeIds turns a token window back into text.
func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
