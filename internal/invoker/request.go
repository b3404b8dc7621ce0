package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/session"
)

// mapFieldName is the reserved body field emitted as a fixed coordinates
// object, a convention of the upstream incident API.
const mapFieldName = "Map"

var mapFieldValue = json.RawMessage(`{"coordinates": [0, 0]}`)

// bodyField is one resolved BODY input, order preserved.
type bodyField struct {
	name  string
	value string
}

// fileField is one resolved FILE input destined for a multipart part.
type fileField struct {
	name string
	path string
}

// assembled is the intermediate request before encoding.
type assembled struct {
	url        string
	headers    map[string]string
	bodyFields []bodyField
	fileFields []fileField
	binaryPath string
}

// buildRequest resolves every input against the store and encodes the body
// for the API spec's content type.
func buildRequest(ctx context.Context, api *domain.ApiSpec, store *session.Store) (*http.Request, error) {
	asm := &assembled{
		url:     api.URL,
		headers: make(map[string]string),
	}

	for i := range api.Inputs {
		in := &api.Inputs[i]
		value := resolveInput(in, store)

		switch domain.NormalizePlacement(string(in.Placement)) {
		case domain.PlaceURL:
			asm.url = strings.ReplaceAll(asm.url, "{"+in.Name+"}", url.PathEscape(value))
		case domain.PlaceHeader:
			asm.headers[in.Name] = value
		case domain.PlaceFile:
			if strings.HasSuffix(strings.ToLower(value), ".wav") {
				asm.fileFields = append(asm.fileFields, fileField{name: in.Name, path: value})
			} else {
				asm.bodyFields = append(asm.bodyFields, bodyField{name: in.Name, value: value})
			}
		case domain.PlaceBinary:
			asm.binaryPath = value
		default:
			asm.bodyFields = append(asm.bodyFields, bodyField{name: in.Name, value: value})
		}
	}

	body, contentType, err := encodeBody(api, asm)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(api.Method), asm.url, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "invoker.buildRequest", apperrors.CodeHTTPFailure, "cannot build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range asm.headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

// resolveInput produces the input's final value per its source.
func resolveInput(in *domain.ApiInput, store *session.Store) string {
	switch domain.NormalizeValueSource(string(in.ValueSource)) {
	case domain.SourceDynamic, domain.SourceEnvironment:
		value := store.Expand(in.RawValue)
		if value == "" && in.DefaultValue != "" {
			return in.DefaultValue
		}
		return value
	default:
		return in.RawValue
	}
}

// encodeBody produces the request body and its content type.
func encodeBody(api *domain.ApiSpec, asm *assembled) (io.Reader, string, error) {
	switch strings.ToLower(api.ContentType) {
	case domain.ContentJSON:
		data, err := encodeJSONBody(api, asm.bodyFields)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), domain.ContentJSON, nil

	case domain.ContentForm:
		form := url.Values{}
		for _, f := range asm.bodyFields {
			form.Set(f.name, f.value)
		}
		return strings.NewReader(form.Encode()), domain.ContentForm, nil

	case domain.ContentMultipart:
		return encodeMultipartBody(asm)

	case domain.ContentWav:
		data, err := readBinary(asm)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), domain.ContentWav, nil

	default: // raw
		if asm.binaryPath != "" {
			data, err := readBinary(asm)
			if err != nil {
				return nil, "", err
			}
			return bytes.NewReader(data), "application/octet-stream", nil
		}
		if len(asm.bodyFields) > 0 {
			return strings.NewReader(asm.bodyFields[0].value), "", nil
		}
		return nil, "", nil
	}
}

// encodeJSONBody produces either the flat {name: value} shape or the
// {"values": [{"name": N, "value": V}, ...]} shape, depending on APIType.
// The reserved Map field is always emitted as the coordinates object.
func encodeJSONBody(api *domain.ApiSpec, fields []bodyField) ([]byte, error) {
	if api.IsSimpleJSON() {
		flat := make(map[string]any, len(fields))
		for _, f := range fields {
			if f.name == mapFieldName {
				flat[f.name] = mapFieldValue
				continue
			}
			flat[f.name] = f.value
		}
		return json.Marshal(flat)
	}

	type namedValue struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	values := make([]namedValue, 0, len(fields))
	for _, f := range fields {
		if f.name == mapFieldName {
			values = append(values, namedValue{Name: f.name, Value: mapFieldValue})
			continue
		}
		values = append(values, namedValue{Name: f.name, Value: f.value})
	}
	return json.Marshal(map[string]any{"values": values})
}

// encodeMultipartBody composes form fields and file parts.
func encodeMultipartBody(asm *assembled) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range asm.bodyFields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", apperrors.Wrap(err, "invoker.encodeMultipartBody", apperrors.CodeHTTPFailure, "cannot write form field")
		}
	}
	for _, f := range asm.fileFields {
		part, err := w.CreateFormFile(f.name, filepath.Base(f.path))
		if err != nil {
			return nil, "", apperrors.Wrap(err, "invoker.encodeMultipartBody", apperrors.CodeHTTPFailure, "cannot create file part")
		}
		src, err := os.Open(f.path)
		if err != nil {
			return nil, "", apperrors.Wrap(err, "invoker.encodeMultipartBody", apperrors.CodeMissingFile, "cannot open upload file")
		}
		_, err = io.Copy(part, src)
		src.Close()
		if err != nil {
			return nil, "", apperrors.Wrap(err, "invoker.encodeMultipartBody", apperrors.CodeHTTPFailure, "cannot read upload file")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", apperrors.Wrap(err, "invoker.encodeMultipartBody", apperrors.CodeHTTPFailure, "cannot finalize multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

// readBinary loads the file bound as the raw request body.
func readBinary(asm *assembled) ([]byte, error) {
	if asm.binaryPath == "" {
		return nil, apperrors.New(apperrors.CodeMissingFile, "no binary input bound for raw body")
	}
	data, err := os.ReadFile(asm.binaryPath)
	if err != nil {
		return nil, apperrors.Wrap(err, "invoker.readBinary", apperrors.CodeMissingFile, "cannot read body file")
	}
	return data, nil
}
