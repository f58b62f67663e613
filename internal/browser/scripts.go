package browser

// snapshotJS clones the document and copies live form state into the clone
// (input values, checked boxes, selected options, textarea text) so the
// serialised HTML carries what the operator sees. The live page is not
// modified.
const snapshotJS = `() => {
	const root = document.documentElement;
	const clone = root.cloneNode(true);
	const pairs = (sel) => {
		const a = root.querySelectorAll(sel), b = clone.querySelectorAll(sel);
		const out = [];
		for (let i = 0; i < a.length && i < b.length; i++) out.push([a[i], b[i]]);
		return out;
	};
	for (const [live, copy] of pairs('input')) {
		if (live.type === 'checkbox' || live.type === 'radio') {
			if (live.checked) copy.setAttribute('checked', ''); else copy.removeAttribute('checked');
		} else {
			copy.setAttribute('value', live.value);
		}
	}
	for (const [live, copy] of pairs('textarea')) copy.textContent = live.value;
	for (const [live, copy] of pairs('select')) {
		for (let i = 0; i < live.options.length && i < copy.options.length; i++) {
			if (live.options[i].selected) copy.options[i].setAttribute('selected', '');
			else copy.options[i].removeAttribute('selected');
		}
	}
	return { url: location.href, html: clone.outerHTML };
}`

// clipsJS reads the viewer's clip collection: window.clips, then a
// "var clips = {...}" script, in this window and in every same-origin frame.
const clipsJS = `() => {
	const norm = (obj) => Object.entries(obj || {}).map(([id, c]) => ({
		id: String(id),
		furl: (c && c.furl) || '',
		b64: (c && c.b64) || '',
		mime: (c && (c.mime || c.mimeType)) || '',
	}));
	const fromWindow = (w) => {
		try { if (w.clips && Object.keys(w.clips).length > 0) return norm(w.clips); } catch (e) {}
		return null;
	};
	const fromScripts = (d) => {
		try {
			for (const s of d.querySelectorAll('script')) {
				const m = s.textContent.match(/var clips = ({[\s\S]*?});/);
				if (m) { const list = norm(JSON.parse(m[1])); if (list.length > 0) return list; }
			}
		} catch (e) {}
		return null;
	};
	let found = fromWindow(window) || fromScripts(document);
	if (found) return found;
	for (let i = 0; i < window.frames.length; i++) {
		try {
			const f = window.frames[i];
			found = fromWindow(f) || fromScripts(f.document);
			if (found) return found;
		} catch (e) {}
	}
	return [];
}`

// fetchJS downloads url with the page's cookies and returns it base64
// encoded.
const fetchJS = `async (url) => {
	const r = await fetch(url, { credentials: 'include' });
	if (!r.ok) throw new Error('HTTP ' + r.status);
	const bytes = new Uint8Array(await r.arrayBuffer());
	let bin = '';
	for (let i = 0; i < bytes.length; i += 0x8000) {
		bin += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
	}
	return { b64: btoa(bin), mime: r.headers.get('content-type') || '' };
}`
