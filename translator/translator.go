package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// Get returns the process-wide shader translator, creating it on first use.
func Get() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			initErr = fmt.Errorf("failed to create shader translator: %w", initErr)
		}
	})
	return translator, initErr
}

// Fragment translates a WebGL2 fragment shader to the desktop or ES dialect.
// It returns the translated code and a map from source uniform names to the
// names the translated code uses.
func Fragment(source string, isGLES bool) (string, map[string]string, error) {
	t, err := Get()
	if err != nil {
		return "", nil, err
	}
	format := gst.OutputFormatGLSL410
	if isGLES {
		format = gst.OutputFormatESSL
	}
	out, err := t.TranslateShader(source, "fragment", gst.ShaderSpecWebGL2, format)
	if err != nil {
		return "", nil, fmt.Errorf("fragment shader translation failed: %w", err)
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return out.Code, names, nil
}
