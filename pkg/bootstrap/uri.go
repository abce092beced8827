package bootstrap

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
)

// URIPrefix starts every DPP bootstrapping URI.
const URIPrefix = "DPP:"

// ParseURI parses a DPP bootstrapping URI.
//
// Format: DPP:[C:<class>/<chan>,...;][M:<mac>;][I:<info>;][V:<ver>;]K:<base64 DER>;;
//
// Unknown tokens are ignored.
func ParseURI(uri string) (*Data, error) {
	if !strings.HasPrefix(uri, URIPrefix) {
		return nil, ErrInvalidPrefix
	}
	body := strings.TrimPrefix(uri, URIPrefix)
	if !strings.HasSuffix(body, ";;") {
		return nil, ErrMalformed
	}
	body = strings.TrimSuffix(body, ";")

	var (
		key      []byte
		channels []Channel
		info     string
		version  uint8 = 1
		mac      []byte
	)

	for _, tok := range strings.Split(body, ";") {
		if tok == "" {
			continue
		}
		name, val, ok := strings.Cut(tok, ":")
		if !ok || len(name) != 1 {
			return nil, ErrMalformed
		}
		switch name {
		case "K":
			b, err := base64.StdEncoding.DecodeString(val)
			if err != nil {
				return nil, ErrInvalidKey
			}
			key = b
		case "C":
			cs, err := parseChannels(val)
			if err != nil {
				return nil, err
			}
			channels = cs
		case "M":
			b, err := hex.DecodeString(strings.NewReplacer(":", "", "-", "").Replace(val))
			if err != nil || len(b) != 6 {
				return nil, ErrInvalidMAC
			}
			mac = b
		case "V":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil || v < 1 {
				return nil, ErrInvalidVersion
			}
			version = uint8(v)
		case "I":
			info = val
		}
	}

	if key == nil {
		return nil, ErrMissingKey
	}
	d, err := FromDER(key)
	if err != nil {
		return nil, err
	}
	d.Channels = channels
	d.Info = info
	d.Version = version
	if mac != nil {
		copy(d.MAC[:], mac)
		d.HasMAC = true
	}
	return d, nil
}

func parseChannels(s string) ([]Channel, error) {
	var out []Channel
	for _, p := range strings.Split(s, ",") {
		cls, ch, ok := strings.Cut(p, "/")
		if !ok {
			return nil, ErrInvalidChannel
		}
		c, err1 := strconv.ParseUint(cls, 10, 8)
		n, err2 := strconv.ParseUint(ch, 10, 8)
		if err1 != nil || err2 != nil {
			return nil, ErrInvalidChannel
		}
		out = append(out, Channel{OpClass: uint8(c), Number: uint8(n)})
	}
	return out, nil
}

// URI formats the data as a DPP bootstrapping URI.
func (d *Data) URI() string {
	var b strings.Builder
	b.WriteString(URIPrefix)
	if len(d.Channels) > 0 {
		b.WriteString("C:")
		for i, c := range d.Channels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.String())
		}
		b.WriteByte(';')
	}
	if d.HasMAC {
		b.WriteString("M:")
		b.WriteString(hex.EncodeToString(d.MAC[:]))
		b.WriteByte(';')
	}
	if d.Info != "" {
		b.WriteString("I:")
		b.WriteString(d.Info)
		b.WriteByte(';')
	}
	if d.Version > 1 {
		b.WriteString("V:")
		b.WriteString(strconv.Itoa(int(d.Version)))
		b.WriteByte(';')
	}
	b.WriteString("K:")
	b.WriteString(base64.StdEncoding.EncodeToString(d.DER()))
	b.WriteString(";;")
	return b.String()
}
