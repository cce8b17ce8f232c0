// Package wallpapergen generates phone wallpapers from text prompts and
// manages the single API key used to do it.
//
// The key is checked by a CredentialValidator before it is kept, and stored
// encrypted with AES-GCM by a Vault over any RecordStore. A Session drives the
// whole flow: restore the stored key, accept a new one, run one generation at
// a time through an ImageGenerator, and react to a rejected key by clearing it.
//
// Implementations of ImageGenerator and CredentialValidator live in
// provider/gemini (direct API calls) and provider/proxy (through the proxy
// server). RecordStore implementations live in store.
package wallpapergen
