// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import "github.com/zalando/go-keyring"

// keyringService namespaces this runtime's secrets in the OS credential
// store, separate from any other application using go-keyring.
const keyringService = "cocode"

// keyringCredential is the third credential tier below env var and inline
// config, consulted only when both of those are empty. A missing entry or
// unavailable backend is non-fatal here; the caller folds it into
// ErrAuthMissing.
func keyringCredential(providerName string) (string, error) {
	return keyring.Get(keyringService, providerName)
}

// SaveProviderCredential stores an API key for providerName in the OS
// credential store, for an equivalent of `looms config set-key`.
func SaveProviderCredential(providerName, value string) error {
	return keyring.Set(keyringService, providerName, value)
}

// DeleteProviderCredential removes a stored credential for providerName.
func DeleteProviderCredential(providerName string) error {
	return keyring.Delete(keyringService, providerName)
}
