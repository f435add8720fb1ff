package graph

import (
	"log/slog"
	"net/url"
)

// decodeURLEncodedNames applies url.PathUnescape to shared item names.
// The Graph API sometimes returns percent-encoded names (e.g. "my%20file.txt")
// for items in shared folders, particularly on Personal accounts.
func decodeURLEncodedNames(items []SharedItem, logger *slog.Logger) []SharedItem {
	decoded := 0

	for i := range items {
		unescaped, err := url.PathUnescape(items[i].Name)
		if err != nil {
			// Malformed percent-encoding: keep the name as returned.
			logger.Debug("failed to URL-decode item name, keeping original",
				slog.String("item_id", items[i].ID),
				slog.String("name", items[i].Name),
				slog.String("error", err.Error()),
			)

			continue
		}

		if unescaped != items[i].Name {
			logger.Debug("URL-decoded item name",
				slog.String("item_id", items[i].ID),
				slog.String("encoded", items[i].Name),
				slog.String("decoded", unescaped),
			)

			items[i].Name = unescaped
			decoded++
		}
	}

	if decoded > 0 {
		logger.Info("URL-decoded shared item names",
			slog.Int("decoded_count", decoded),
		)
	}

	return items
}
