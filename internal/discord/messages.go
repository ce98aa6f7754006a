package discord

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL 分转为 "5,00" 形式的金额
func FormatBRL(cents int64) string {
	return strings.Replace(decimal.New(cents, -2).StringFixed(2), ".", ",", 1)
}

func ackMessage(amountCents int64) string {
	return fmt.Sprintf("🔄 Recebi seu pedido! Vou gerar seu PIX (R$ %s) e te enviar por DM em instantes.", FormatBRL(amountCents))
}

func dmHeaderMessage(nickname, reference string, amountCents int64) string {
	return fmt.Sprintf("Olá, **%s**! Aqui está seu PIX (R$ %s).\n**Referência:** `%s`\nPague e aguarde a confirmação automática.",
		nickname, FormatBRL(amountCents), reference)
}

func copyPasteMessage(payable string) string {
	return "**Copia e Cola PIX:**\n```" + payable + "```"
}

func fallbackMessage(reference, payable string, amountCents int64) string {
	parts := []string{
		"⚠️ Não consegui enviar por DM (provavelmente bloqueada). Segue aqui mesmo:",
		fmt.Sprintf("**Referência:** `%s`", reference),
		fmt.Sprintf("**Copia e Cola PIX (R$ %s):**\n```%s```", FormatBRL(amountCents), payable),
	}
	return strings.Join(parts, "\n\n")
}

func grantedMessage(guildName string) string {
	return fmt.Sprintf("✅ Pagamento confirmado! Cargo atribuído no servidor **%s**. Bom evento!", guildName)
}

const (
	dmSentMessage      = "✅ Te enviei a cobrança por DM. Se não aparecer, verifica as DMs comigo."
	chargeErrorMessage = "❌ Ocorreu um erro ao gerar sua cobrança. Tente novamente."
	cooldownMessage    = "⏳ Você acabou de pedir um PIX. Aguarde alguns segundos antes de tentar de novo."
	nicknameMessage    = "⚠️ Informe um nickname válido para gerar a cobrança."
	qrCaption          = "QR Code:"
)

func qrFilename(reference string) string {
	return "pix_" + reference + ".png"
}
