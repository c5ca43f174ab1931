package handler

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportConversations streams the conversation list as an xlsx workbook.
func (h *Handler) ExportConversations(c *gin.Context) {
	list, err := h.Storage.ListConversations()
	if err != nil {
		respondError(c, err, "")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Conversations"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		log.Printf("ERROR: Export: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}

	headers := []string{"ID", "Visitor", "Email", "Status", "Mode", "Messages", "Last message", "Created", "Updated"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, conv := range list {
		row := i + 2
		last := ""
		if conv.LastMessageTime != nil {
			last = conv.LastMessageTime.Format(time.RFC3339)
		}
		values := []any{
			conv.ID,
			conv.UserName,
			conv.UserEmail,
			string(conv.Status),
			string(conv.Mode),
			conv.MessageCount,
			last,
			conv.CreatedAt.Format(time.RFC3339),
			conv.UpdatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	name := fmt.Sprintf("conversations-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("ERROR: Writing export: %v", err)
	}
}

// WidgetQR renders a QR code pointing at the widget page, so staff can open
// the chat on a phone.
func (h *Handler) WidgetQR(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		target = h.Config.PublicURL
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid url"})
		return
	}

	png, err := qrcode.Encode(u.String(), qrcode.Medium, 256)
	if err != nil {
		log.Printf("ERROR: QR encode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
