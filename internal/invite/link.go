// Copyright 2026 The CareForms Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package invite

import (
	"net/url"
	"strings"
)

// LinkParam is the query parameter carrying an invitation credential in
// a shareable link: https://<host>/?invite=<CODE>.
const LinkParam = "invite"

// BuildLink produces the shareable invite URL for a credential.
func BuildLink(baseURL, credential string) string {
	return strings.TrimRight(baseURL, "/") + "/?" + LinkParam + "=" + url.QueryEscape(credential)
}

// DisplayCode renders a short code in its display form XXXX-XXXX.
// Non-code credentials are returned untouched.
func DisplayCode(code string) string {
	if !IsValidShortCodeFormat(code) {
		return code
	}
	return code[:4] + "-" + code[4:]
}

// NormalizeCode uppercases a presented short code and strips any display
// separators. The result is not guaranteed to be well-formed; check with
// IsValidShortCodeFormat.
func NormalizeCode(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// ParseLink extracts the credential from a shareable invite link,
// normalizing short codes on the way out. Returns ErrMalformedCredential
// when the URL carries no usable credential.
func ParseLink(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrMalformedCredential
	}
	cred := u.Query().Get(LinkParam)
	if cred == "" {
		return "", ErrMalformedCredential
	}
	if norm := NormalizeCode(cred); IsValidShortCodeFormat(norm) {
		return norm, nil
	}
	return cred, nil
}
