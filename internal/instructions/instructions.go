// internal/instructions/instructions.go
package instructions

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	tokenprog "github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/solana-relay/internal/token"
)

var (
	// MemoProgramID - программа SPL Memo.
	MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

	// DefaultFeeWallet получает комиссию FeeBps при переводах с комиссией.
	DefaultFeeWallet = solana.MustPublicKeyFromBase58("5sff31ZBNZuT7iAtown5Pf1yzpkGczLy6W5G5nuywFBT")
)

// Memo строит инструкцию memo без аккаунтов.
func Memo(text string) solana.Instruction {
	return solana.NewInstruction(MemoProgramID, solana.AccountMetaSlice{}, []byte(text))
}

// CreateATAIdempotent создает ассоциированный токен-аккаунт, если его ещё нет.
func CreateATAIdempotent(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive ATA for %s: %w", owner, err)
	}

	ix := solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // 1 = CreateIdempotent
	)
	return ix, ata, nil
}

// FeeSplitTransfer описывает перевод токена с удержанием комиссии.
type FeeSplitTransfer struct {
	Owner     solana.PublicKey
	Recipient solana.PublicKey
	FeeWallet solana.PublicKey
	Mint      solana.PublicKey
	// Source - токен-аккаунт отправителя; нулевой выводится как ATA владельца.
	Source   solana.PublicKey
	Decimals uint8
	// Amount - десятичная строка в единицах токена.
	Amount string
	Memo   string
}

// Split - суммы перевода в базовых единицах.
type Split struct {
	Transfer uint64
	Fee      uint64
}

// Build returns the instructions and the computed split. Owner pays for and signs everything.
func (t FeeSplitTransfer) Build() ([]solana.Instruction, Split, error) {
	feeAmount, transferAmount, err := token.CalculateFeeAmounts(t.Amount, t.Decimals)
	if err != nil {
		return nil, Split{}, err
	}
	if transferAmount == 0 {
		return nil, Split{}, fmt.Errorf("%w: nothing left to transfer", token.ErrBadAmount)
	}
	feeWallet := t.FeeWallet
	if feeWallet.IsZero() {
		feeWallet = DefaultFeeWallet
	}

	source := t.Source
	if source.IsZero() {
		if source, _, err = solana.FindAssociatedTokenAddress(t.Owner, t.Mint); err != nil {
			return nil, Split{}, fmt.Errorf("derive source ATA: %w", err)
		}
	}
	createRecipient, recipientATA, err := CreateATAIdempotent(t.Owner, t.Recipient, t.Mint)
	if err != nil {
		return nil, Split{}, err
	}

	out := []solana.Instruction{createRecipient}
	var feeATA solana.PublicKey
	if feeAmount > 0 {
		var createFee solana.Instruction
		createFee, feeATA, err = CreateATAIdempotent(t.Owner, feeWallet, t.Mint)
		if err != nil {
			return nil, Split{}, err
		}
		out = append(out, createFee)
	}

	out = append(out, tokenprog.NewTransferCheckedInstruction(
		transferAmount, t.Decimals, source, t.Mint, recipientATA, t.Owner, nil,
	).Build())
	if feeAmount > 0 {
		out = append(out, tokenprog.NewTransferCheckedInstruction(
			feeAmount, t.Decimals, source, t.Mint, feeATA, t.Owner, nil,
		).Build())
	}
	if t.Memo != "" {
		out = append(out, Memo(t.Memo))
	}
	return out, Split{Transfer: transferAmount, Fee: feeAmount}, nil
}
