/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package gemroc

import (
	_ "embed"
	"net/http"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-gemroc/pkg/log"
)

const (
	SwaggerPath = "/swagger.json"
	DocsPath    = "docs"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// LoadSwagger parses and analyzes the embedded API description
func LoadSwagger() (*loads.Document, error) {
	data, err := yaml.YAMLToJSON(swaggerYAML)
	if err != nil {
		return nil, err
	}
	return loads.Analyzed(data, "")
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(s.swagger.Raw()); err != nil {
			log.Error("Error while writing swagger document: %s", err)
		}
	}
}

// docsHandler serves the rendered API documentation at /docs
func (s *ApiServer) docsHandler(next http.Handler) http.Handler {
	return middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     DocsPath,
		SpecURL:  SwaggerPath,
		Title:    s.swagger.Spec().Info.Title,
	}, next)
}
