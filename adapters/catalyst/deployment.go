package catalyst

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"sort"

	"github.com/layer-3/linker/core"
)

// EncodeDeployment assembles the multipart body expected by /content/entities:
// the entityId field, the auth chain as authChain[i][type|payload|signature]
// and every file under its own name, sorted by name.
func EncodeDeployment(entityID string, chain core.AuthChain, files core.UploadFiles) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("entityId", entityID); err != nil {
		return nil, "", fmt.Errorf("failed to write entityId: %w", err)
	}

	for i, link := range chain {
		fields := [][2]string{
			{"type", string(link.Type)},
			{"payload", link.Payload},
			{"signature", link.Signature},
		}
		for _, f := range fields {
			if err := writer.WriteField(fmt.Sprintf("authChain[%d][%s]", i, f[0]), f[1]); err != nil {
				return nil, "", fmt.Errorf("failed to write auth chain: %w", err)
			}
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		part, err := writer.CreateFormFile(name, name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := part.Write(files[name]); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
