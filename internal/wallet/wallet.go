// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrBadKey возвращается для пустого или незаданного ключа.
var ErrBadKey = errors.New("creating secret from bad input")

// Wallet представляет кошелёк Solana и реализует подпись произвольных байт.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	ataCache   sync.Map // mint -> ассоциированный токен-аккаунт (ATA)
}

// ParseKey разбирает секретный ключ: JSON-массив байт (скобки можно опустить) или base58.
func ParseKey(secret string) (solana.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" || secret == "NOT_SET" {
		return nil, ErrBadKey
	}

	var raw []byte
	if looksLikeByteList(secret) {
		if !strings.HasPrefix(secret, "[") {
			secret = "[" + secret + "]"
		}
		var ints []int
		if err := json.Unmarshal([]byte(secret), &ints); err != nil {
			return nil, fmt.Errorf("failed to decode key byte array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("key byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode private key: %w", err)
		}
		raw = decoded
	}

	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func looksLikeByteList(s string) bool {
	return strings.HasPrefix(s, "[") || strings.Contains(s, ",")
}

// NewWallet создаёт кошелёк из секретного ключа в любом из форматов ParseKey.
func NewWallet(secret string) (*Wallet, error) {
	privateKey, err := ParseKey(secret)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// LoadWallets загружает кошельки из CSV-файла с колонками: [Name, PrivateKey].
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		w, err := NewWallet(record[1])
		if err != nil {
			continue
		}
		wallets[record[0]] = w
	}
	return wallets, nil
}

// Sign подписывает сообщение транзакции.
func (w *Wallet) Sign(payload []byte) (solana.Signature, error) {
	return w.PrivateKey.Sign(payload)
}

// GetATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного токена (mint).
// Если адрес уже был вычислен ранее, возвращается значение из кеша.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	if ata, ok := w.ataCache.Load(mint); ok {
		return ata.(solana.PublicKey), nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache.Store(mint, ata)
	return ata, nil
}

// AuthMessage - текст, который владелец кошелька подписывает для аутентификации.
func AuthMessage(publicKey solana.PublicKey, token string) string {
	return fmt.Sprintf("I am the owner of %s. This message is for Trade Relay only. [Request #%s]", publicKey, token)
}

// SignAuthMessage подписывает AuthMessage ключом кошелька.
func (w *Wallet) SignAuthMessage(token string) (solana.Signature, error) {
	return w.Sign([]byte(AuthMessage(w.PublicKey, token)))
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
