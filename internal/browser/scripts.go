package browser

// Snippets evaluated against a single element handle; the handle is the first argument.
const (
	shadowRootOrSelfScript = `el => el.shadowRoot ? el.shadowRoot : el`

	isConnectedScript = `el => el.isConnected`

	controlTypeScript = `el => el.type || ''`

	// Zero threshold: any intersecting pixel counts.
	intersectsViewportScript = `el => new Promise(resolve => {
		const observer = new IntersectionObserver(entries => {
			resolve(entries[0].isIntersecting);
			observer.disconnect();
		}, { threshold: 0 });
		observer.observe(el);
	})`

	scrollIntoCenterScript = `el => el.scrollIntoView({ block: 'center', inline: 'center', behavior: 'auto' })`

	assignValueScript = `(el, value) => {
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`

	valueScript = `el => el.value == null ? '' : String(el.value)`

	optionValuesScript = `el => Array.from(el.options || []).map(option => option.value)`
)
