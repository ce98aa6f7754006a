package discord

import (
	"bytes"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/skip2/go-qrcode"
)

const qrSize = 512

// RenderQR 将 PIX 复制粘贴码渲染为 PNG
func RenderQR(payable string) ([]byte, error) {
	return qrcode.Encode(strings.TrimSpace(payable), qrcode.Medium, qrSize)
}

func qrFile(reference string, png []byte) *discordgo.File {
	return &discordgo.File{
		Name:        qrFilename(reference),
		ContentType: "image/png",
		Reader:      bytes.NewReader(png),
	}
}
